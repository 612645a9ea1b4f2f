package capture

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Scratch - 디코더가 읽을 수 있는 임시 리소스 (임시 파일) 를 만들고 해제 함수 반환
// release 는 여러 번 불러도 실제 해제는 한 번만 일어나야 함
type Scratch interface {
	Acquire(ctx context.Context, data []byte, suffix string) (path string, release func(), err error)
}

// TempScratch - 디렉터리 아래에 임시 파일 생성
type TempScratch struct {
	Dir string
}

func NewTempScratch(dir string) *TempScratch {
	return &TempScratch{Dir: dir}
}

func (s *TempScratch) Acquire(ctx context.Context, data []byte, suffix string) (string, func(), error) {
	if err := ctx.Err(); err != nil {
		return "", func() {}, err
	}
	if s.Dir != "" {
		if err := os.MkdirAll(s.Dir, 0o755); err != nil {
			return "", func() {}, fmt.Errorf("mkdir scratch dir: %w", err)
		}
	}
	if suffix != "" && !strings.HasPrefix(suffix, ".") {
		suffix = "." + suffix
	}

	f, err := os.CreateTemp(s.Dir, "capture-*"+suffix)
	if err != nil {
		return "", func() {}, fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()

	var once sync.Once
	release := func() {
		once.Do(func() { _ = os.Remove(path) })
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		release()
		return "", func() {}, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		release()
		return "", func() {}, fmt.Errorf("close temp file: %w", err)
	}

	return path, release, nil
}
