package imgx

import (
	"errors"
	"image"
	_ "image/jpeg" // 注册 JPEG 解码器（胸片原图多为 jpeg）
	_ "image/png"  // 注册 PNG 解码器（NIH 归档里是 png）
	"io"
	"os"
)

// FileDecoder 把磁盘上的图片解码为归一化像素序列，供统计侧消费。
//
// 口径（必须与训练侧 ToTensor 一致）：
// - 像素值归一化到 [0,1]
// - 灰度图每个像素贡献 1 个通道值；其余图每个像素贡献 R/G/B 3 个通道值
// - alpha 通道不参与统计
type FileDecoder struct{}

// DecodeNormalized 打开并解码 path，返回按行优先展开的归一化像素值。
func (FileDecoder) DecodeNormalized(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decodeNormalized(f)
}

func decodeNormalized(r io.Reader) ([]float64, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errors.New("图片尺寸无效")
	}

	// RGBA() 统一返回 16-bit 预乘值：/65535 等价于 8-bit 值 /255。
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		px := make([]float64, 0, b.Dx()*b.Dy())
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				v, _, _, _ := img.At(x, y).RGBA()
				px = append(px, float64(v)/65535.0)
			}
		}
		return px, nil
	default:
		px := make([]float64, 0, 3*b.Dx()*b.Dy())
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				cr, cg, cb, _ := img.At(x, y).RGBA()
				px = append(px,
					float64(cr)/65535.0,
					float64(cg)/65535.0,
					float64(cb)/65535.0,
				)
			}
		}
		return px, nil
	}
}
