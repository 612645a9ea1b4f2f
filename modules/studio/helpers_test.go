package studio

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"veo-studio-server/modules/common/model"
)

func pngBytes(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testImage(name string) *model.ImageFile {
	return model.NewImageFile(name, "image/png", []byte("png-"+name))
}

func testVideo(name string) *model.VideoFile {
	return model.NewVideoFile(name, "video/mp4", []byte("mp4-"+name))
}

// drawFormState - 임의의 폼 조작을 거친 상태
func drawFormState(rt *rapid.T) FormState {
	state := DefaultFormState()
	steps := rapid.IntRange(0, 12).Draw(rt, "steps")
	for i := 0; i < steps; i++ {
		label := fmt.Sprintf("op_%d", i)
		switch rapid.IntRange(0, 11).Draw(rt, label) {
		case 0:
			state = SelectMode(state, rapid.SampledFrom(SelectableModes()).Draw(rt, label+"_mode"))
		case 1:
			state = SetPrompt(state, rapid.SampledFrom([]string{"", "  ", "a cat surfing"}).Draw(rt, label+"_prompt"))
		case 2:
			state = SetModel(state, rapid.SampledFrom([]ModelTier{ModelFast, ModelHighQuality}).Draw(rt, label+"_model"))
		case 3:
			state = SetResolution(state, rapid.SampledFrom([]Resolution{Resolution720p, Resolution1080p, Resolution4K}).Draw(rt, label+"_res"))
		case 4:
			state = SetStartFrame(state, testImage("start"))
		case 5:
			state = SetEndFrame(state, testImage("end"))
		case 6:
			state = SetLooping(state, rapid.Bool().Draw(rt, label+"_loop"))
		case 7:
			state, _ = AddReferenceImage(state, testImage(label))
		case 8:
			state = RemoveReferenceImage(state, rapid.IntRange(-1, 3).Draw(rt, label+"_idx"))
		case 9:
			state = SetStyleImage(state, testImage("style"))
		case 10:
			state = SetInputVideo(state, testVideo("source.mp4"))
		case 11:
			state = ContinueFrom(state, model.VideoHandle{URI: "files/prev-" + label})
		}
	}
	return state
}
