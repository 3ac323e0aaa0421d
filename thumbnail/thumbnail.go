// Package thumbnail 渲染导入图片的方形缩略图，选中时叠加强调色边框。
package thumbnail

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
)

const (
	DefaultSize        = 256
	DefaultBorderWidth = 4
)

// DefaultAccent 为未配置强调色时使用的颜色
var DefaultAccent = color.NRGBA{R: 0xFF, G: 0x40, B: 0x81, A: 0xFF}

type Options struct {
	// Size 输出边长（像素）；<=0 使用 DefaultSize。
	Size int
	// Activated 为 true 时绘制边框。
	Activated bool
	// Accent 边框颜色；nil 使用 DefaultAccent。
	Accent color.Color
	// BorderWidth 边框线宽，同时也是边框中心线距边缘的距离；<=0 使用 DefaultBorderWidth。
	BorderWidth int
}

// Render 居中裁剪为正方形并缩放到 opts.Size。
func Render(src image.Image, opts Options) *image.RGBA {
	size := opts.Size
	if size <= 0 {
		size = DefaultSize
	}
	bw := opts.BorderWidth
	if bw <= 0 {
		bw = DefaultBorderWidth
	}
	var accent color.Color = DefaultAccent
	if opts.Accent != nil {
		accent = opts.Accent
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, squareCrop(src.Bounds()), draw.Src, nil)

	if opts.Activated {
		strokeRect(dst, size, bw, accent)
	}
	return dst
}

func squareCrop(b image.Rectangle) image.Rectangle {
	w, h := b.Dx(), b.Dy()
	side := w
	if h < side {
		side = h
	}
	x0 := b.Min.X + (w-side)/2
	y0 := b.Min.Y + (h-side)/2
	return image.Rect(x0, y0, x0+side, y0+side)
}

// strokeRect 以距边缘 bw 的矩形为中心线，绘制宽度为 bw 的描边
func strokeRect(dst draw.Image, size, bw int, c color.Color) {
	u := image.NewUniform(c)
	o := bw - bw/2
	for _, r := range []image.Rectangle{
		image.Rect(o, o, size-o, o+bw),           // top
		image.Rect(o, size-o-bw, size-o, size-o), // bottom
		image.Rect(o, o, o+bw, size-o),           // left
		image.Rect(size-o-bw, o, size-o, size-o), // right
	} {
		draw.Draw(dst, r, u, image.Point{}, draw.Over)
	}
}

// Decode 读取 jpeg/png/gif 图片。
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("无法解码图片: %w", err)
	}
	return img, nil
}

func Encode(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

// ParseAccent 解析 "#RRGGBB" 或 "#AARRGGBB"。
func ParseAccent(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("无效的颜色值: %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("无效的颜色值: %q", s)
	}
	a := uint8(0xFF)
	if len(hex) == 8 {
		a = uint8(v >> 24)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: a}, nil
}
