package utils

import (
	"fmt"
	"image"
	"io"
	"math"
	"regexp"
	"strconv"

	"github.com/disintegration/imaging"
)

const (
	sampleSize   = 50
	sampleStride = 10 // 每隔 10 个像素采样一次
	quantStep    = 32
)

// DefaultDominantColor is returned when no opaque pixel was sampled.
const DefaultDominantColor = "rgb(128,128,128)"

var rgbPattern = regexp.MustCompile(`rgb\((\d+),\s*(\d+),\s*(\d+)\)`)

// DecodeDominantColor 解码图片并提取主色调
func DecodeDominantColor(r io.Reader) (string, error) {
	img, err := imaging.Decode(r)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	return DominantColor(img), nil
}

// DominantColor downscales img to 50x50, samples every 10th pixel, skips pixels with
// alpha < 128 and returns the most frequent colour after quantising each channel to
// multiples of 32. Ties go to the colour seen first.
func DominantColor(img image.Image) string {
	small := imaging.Resize(img, sampleSize, sampleSize, imaging.Box)

	counts := make(map[[3]int]int)
	var order [][3]int
	pix := small.Pix
	for i := 0; i+3 < len(pix); i += 4 * sampleStride {
		if pix[i+3] < 128 {
			continue
		}
		key := [3]int{quantize(pix[i]), quantize(pix[i+1]), quantize(pix[i+2])}
		if _, ok := counts[key]; !ok {
			order = append(order, key)
		}
		counts[key]++
	}

	maxCount := 0
	var dominant *[3]int
	for i := range order {
		if c := counts[order[i]]; c > maxCount {
			maxCount = c
			dominant = &order[i]
		}
	}
	if dominant == nil {
		return DefaultDominantColor
	}
	return fmt.Sprintf("rgb(%d,%d,%d)", dominant[0], dominant[1], dominant[2])
}

func quantize(v uint8) int {
	q := int(math.Round(float64(v)/quantStep)) * quantStep
	if q > 255 {
		q = 255
	}
	return q
}

// LightenColor 将 rgb(...) 颜色在 HSL 空间中提亮 lightness（0-1）；非 rgb 格式原样返回
func LightenColor(color string, lightness float64) string {
	m := rgbPattern.FindStringSubmatch(color)
	if m == nil {
		return color
	}
	r, _ := strconv.Atoi(m[1])
	g, _ := strconv.Atoi(m[2])
	b, _ := strconv.Atoi(m[3])

	h, s, l := rgbToHSL(float64(r), float64(g), float64(b))
	l = math.Min(100, l+lightness*100)
	nr, ng, nb := hslToRGB(h, s, l)

	return fmt.Sprintf("rgb(%d, %d, %d)", int(math.Round(nr)), int(math.Round(ng)), int(math.Round(nb)))
}

// rgbToHSL returns h in degrees, s in [0,1] and l in percent.
func rgbToHSL(r, g, b float64) (float64, float64, float64) {
	r, g, b = r/255, g/255, b/255
	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	l := (max + min) / 2
	var h, s float64

	if max != min {
		d := max - min
		if l > 0.5 {
			s = d / (2 - max - min)
		} else {
			s = d / (max + min)
		}
		switch max {
		case r:
			h = (g - b) / d
			if g < b {
				h += 6
			}
		case g:
			h = (b-r)/d + 2
		default:
			h = (r-g)/d + 4
		}
		h /= 6
	}
	return h * 360, s, l * 100
}

// hslToRGB is the inverse of rgbToHSL.
func hslToRGB(h, s, l float64) (float64, float64, float64) {
	h /= 360
	l /= 100

	if s == 0 {
		return l * 255, l * 255, l * 255
	}

	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	return hueToRGB(p, q, h+1.0/3) * 255, hueToRGB(p, q, h) * 255, hueToRGB(p, q, h-1.0/3) * 255
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 1.0/2:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	}
	return p
}
