package studio

import (
	"errors"
	"fmt"
)

// ErrSubmissionInFlight - 조립/제출 중 중복 제출
var ErrSubmissionInFlight = errors.New("a submission is already in progress")

// FileReadError - 선택된 파일을 바이너리+base64 로 읽지 못함
type FileReadError struct {
	Name string
	Err  error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("failed to read file %q: %v", e.Name, e.Err)
}

func (e *FileReadError) Unwrap() error {
	return e.Err
}

// ValidationError - 제출 게이트에서 막힘 (항상 사용자가 고칠 수 있음)
type ValidationError struct {
	Mode   GenerationMode
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("cannot submit %s request: %s", e.Mode, e.Reason)
}
