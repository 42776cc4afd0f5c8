package mdp4

import "mdp-go/errcode"

// PixelFormat is a source or blt buffer layout.
type PixelFormat uint8

const (
	FormatUnknown PixelFormat = iota
	FormatRGB565
	FormatRGB888
	FormatARGB8888
	FormatRGBA8888
	FormatXRGB8888
	FormatBGRA8888
	FormatYCbCr420SP
	FormatYCrCb420SP
)

var formatNames = [...]string{
	FormatUnknown:    "unknown",
	FormatRGB565:     "rgb565",
	FormatRGB888:     "rgb888",
	FormatARGB8888:   "argb8888",
	FormatRGBA8888:   "rgba8888",
	FormatXRGB8888:   "xrgb8888",
	FormatBGRA8888:   "bgra8888",
	FormatYCbCr420SP: "ycbcr420sp",
	FormatYCrCb420SP: "ycrcb420sp",
}

func (f PixelFormat) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return "unknown"
}

// ParseFormat is the inverse of String.
func ParseFormat(s string) (PixelFormat, bool) {
	for i, n := range formatNames {
		if n == s && i != int(FormatUnknown) {
			return PixelFormat(i), true
		}
	}
	return FormatUnknown, false
}

// BytesPerPixel of the first plane. Semi-planar YUV reports its luma plane.
func (f PixelFormat) BytesPerPixel() uint32 {
	switch f {
	case FormatRGB565:
		return 2
	case FormatRGB888:
		return 3
	case FormatARGB8888, FormatRGBA8888, FormatXRGB8888, FormatBGRA8888:
		return 4
	case FormatYCbCr420SP, FormatYCrCb420SP:
		return 1
	default:
		return 0
	}
}

// FormatForDepth maps a framebuffer depth in bytes to its RGB format.
func FormatForDepth(bytesPerPixel uint32) PixelFormat {
	switch bytesPerPixel {
	case 2:
		return FormatRGB565
	case 3:
		return FormatRGB888
	default:
		return FormatARGB8888
	}
}

// PipeType is the class of hardware pipe a format is fetched by.
type PipeType uint8

const (
	PipeRGB PipeType = iota
	PipeVG
	PipeBorderFill
)

func (t PipeType) String() string {
	switch t {
	case PipeRGB:
		return "rgb"
	case PipeVG:
		return "vg"
	case PipeBorderFill:
		return "bf"
	default:
		return "unknown"
	}
}

// TypeOf maps a source format to the pipe class that can fetch it.
func TypeOf(f PixelFormat) (PipeType, error) {
	switch f {
	case FormatRGB565, FormatRGB888, FormatARGB8888, FormatRGBA8888, FormatXRGB8888, FormatBGRA8888:
		return PipeRGB, nil
	case FormatYCbCr420SP, FormatYCrCb420SP:
		return PipeVG, nil
	default:
		return PipeRGB, errcode.New(errcode.FormatUnsupported, "format2type", f.String())
	}
}
