package board

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/collabboard/server/pkg/boarderrors"
)

func encodeTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

func TestSetPreviewSnapshotDownsamplesOversizedImage(t *testing.T) {
	svc := newTestService(t)
	b, _ := svc.Create("board", "owner")

	raw := encodeTestPNG(t, 1000, 500)
	if err := svc.SetPreviewSnapshot(b.ID, raw); err != nil {
		t.Fatalf("set preview: %v", err)
	}

	stored, err := svc.PreviewSnapshot(b.ID)
	if err != nil {
		t.Fatalf("get preview: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(stored))
	if err != nil {
		t.Fatalf("decode stored preview: %v", err)
	}
	if cfg.Width != previewMaxDim || cfg.Height != previewMaxDim/2 {
		t.Fatalf("expected a %dx%d downsampled preview, got %dx%d", previewMaxDim, previewMaxDim/2, cfg.Width, cfg.Height)
	}
}

func TestSetPreviewSnapshotKeepsSmallImageUnscaled(t *testing.T) {
	svc := newTestService(t)
	b, _ := svc.Create("board", "owner")

	raw := encodeTestPNG(t, 50, 40)
	if err := svc.SetPreviewSnapshot(b.ID, raw); err != nil {
		t.Fatalf("set preview: %v", err)
	}

	stored, err := svc.PreviewSnapshot(b.ID)
	if err != nil {
		t.Fatalf("get preview: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(stored))
	if err != nil {
		t.Fatalf("decode stored preview: %v", err)
	}
	if cfg.Width != 50 || cfg.Height != 40 {
		t.Fatalf("expected the small image to pass through unscaled, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestSetPreviewSnapshotRejectsGarbage(t *testing.T) {
	svc := newTestService(t)
	b, _ := svc.Create("board", "owner")

	err := svc.SetPreviewSnapshot(b.ID, []byte("not an image"))
	if err == nil {
		t.Fatal("expected garbage bytes to be rejected")
	}
	if boarderrors.CodeOf(err) != boarderrors.CodeValidation {
		t.Fatalf("expected a validation error, got %v", err)
	}
}

func TestSetPreviewSnapshotRejectsEmptyUpload(t *testing.T) {
	svc := newTestService(t)
	b, _ := svc.Create("board", "owner")

	err := svc.SetPreviewSnapshot(b.ID, nil)
	if err == nil {
		t.Fatal("expected an empty upload to be rejected")
	}
}
