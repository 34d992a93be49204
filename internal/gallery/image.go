package gallery

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	// 注册 webp 解码，QQ 侧转存的表情图大量是 webp。
	_ "github.com/chai2010/webp"
)

// maxEdge 是压缩后图片长边的上限（像素）。
const maxEdge = 512

// compressImage 把长边超过 maxEdge 的图片等比缩小，并统一无损重编码为 PNG。
func compressImage(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxEdge || bounds.Dy() > maxEdge {
		img = imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// sameImage 按「尺寸相同且逐像素相同」判断两张图是否重复。
// 任一方解码失败按不重复处理。
func sameImage(a, b []byte) bool {
	imgA, err := imaging.Decode(bytes.NewReader(a))
	if err != nil {
		return false
	}
	imgB, err := imaging.Decode(bytes.NewReader(b))
	if err != nil {
		return false
	}
	if imgA.Bounds().Size() != imgB.Bounds().Size() {
		return false
	}
	return bytes.Equal(imaging.Clone(imgA).Pix, imaging.Clone(imgB).Pix)
}

// imageExt 返回图片内容对应的扩展名，无法识别时退回 png。
func imageExt(data []byte) string {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || format == "" {
		return "png"
	}
	if format == "jpeg" {
		return "jpg"
	}
	return format
}
