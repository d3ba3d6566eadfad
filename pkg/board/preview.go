package board

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/webp"

	"golang.org/x/image/draw"

	"github.com/collabboard/server/pkg/boarderrors"
)

// previewMaxDim bounds a stored preview's longest edge (spec §4.H "board
// preview snapshot ... downsampling a client-submitted preview image
// before storing").
const previewMaxDim = 320

// maxPreviewUploadBytes rejects unreasonably large client uploads before
// they're ever decoded.
const maxPreviewUploadBytes = 8 << 20 // 8 MiB

// SetPreviewSnapshot decodes, downsamples, and stores a board preview
// image. Accepts any format the process has a registered decoder for
// (jpeg, png, gif, webp); always stores as PNG.
func (s *Service) SetPreviewSnapshot(boardID string, raw []byte) error {
	if len(raw) == 0 {
		return boarderrors.New(boarderrors.CodeValidation, "preview image is empty")
	}
	if len(raw) > maxPreviewUploadBytes {
		return boarderrors.New(boarderrors.CodeValidation, "preview image exceeds the upload size limit")
	}
	thumbnail, err := downsamplePreview(raw)
	if err != nil {
		return boarderrors.New(boarderrors.CodeValidation, "could not decode preview image: "+err.Error())
	}
	if err := s.db.SetPreviewSnapshot(boardID, thumbnail); err != nil {
		return fmt.Errorf("store preview snapshot: %w", err)
	}
	return nil
}

// PreviewSnapshot returns a board's stored preview PNG, or nil if it has
// none.
func (s *Service) PreviewSnapshot(boardID string) ([]byte, error) {
	return s.db.PreviewSnapshot(boardID)
}

// downsamplePreview decodes an arbitrary raster image and scales it down
// to fit within previewMaxDim on its longest edge, re-encoding as PNG.
// Images already at or below the target size are re-encoded unscaled
// rather than upscaled.
func downsamplePreview(raw []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("image has zero dimension")
	}

	dstW, dstH := w, h
	if w > previewMaxDim || h > previewMaxDim {
		if w >= h {
			dstH = h * previewMaxDim / w
			dstW = previewMaxDim
		} else {
			dstW = w * previewMaxDim / h
			dstH = previewMaxDim
		}
		if dstW < 1 {
			dstW = 1
		}
		if dstH < 1 {
			dstH = 1
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode preview png: %w", err)
	}
	return buf.Bytes(), nil
}
