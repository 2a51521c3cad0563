package transform

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
)

// salvage rebuilds a decodable stream from an original whose regular decode
// failed. Only truncation-style damage in JPEG, PNG and GIF is recoverable;
// the missing area decodes as filler.
func salvage(data []byte, f Format) (io.Reader, bool) {
	switch f {
	case JPEG:
		return padJPEG(data)
	case PNG:
		repaired, err := repairPNG(data)
		if err != nil {
			return nil, false
		}
		return bytes.NewReader(repaired), true
	case GIF:
		trimmed, ok := trimGIF(data)
		if !ok {
			return nil, false
		}
		return bytes.NewReader(trimmed), true
	default:
		return nil, false
	}
}

// jpegPadPerBlock bounds the entropy-coded bytes an all-zero bit stream needs
// per 8x8 block with common Huffman tables.
const jpegPadPerBlock = 128

// padJPEG appends zero scan data and an EOI marker. Zero bits decode as the
// shortest Huffman codes, so the missing MCUs come out flat and the decoder
// reaches the end of the image; surplus zeros are skipped as extraneous data
// before EOI.
func padJPEG(data []byte) (io.Reader, bool) {
	blocks, ok := jpegBlocks(data)
	if !ok {
		return nil, false
	}
	return io.MultiReader(
		bytes.NewReader(data),
		io.LimitReader(zeroReader{}, blocks*jpegPadPerBlock),
		bytes.NewReader([]byte{0xff, 0xd9}),
	), true
}

// jpegBlocks walks the marker segments up to the frame header and returns
// an upper bound of 8x8 blocks in the image.
func jpegBlocks(data []byte) (int64, bool) {
	if len(data) < 4 || data[0] != 0xff || data[1] != 0xd8 {
		return 0, false
	}
	pos := 2
	for pos+4 <= len(data) {
		if data[pos] != 0xff {
			return 0, false
		}
		marker := data[pos+1]
		if marker == 0xff {
			pos++
			continue
		}
		if isSOF(marker) {
			if pos+10 > len(data) {
				return 0, false
			}
			height := int64(binary.BigEndian.Uint16(data[pos+5:]))
			width := int64(binary.BigEndian.Uint16(data[pos+7:]))
			components := int64(data[pos+9])
			if width == 0 || height == 0 || components == 0 {
				return 0, false
			}
			return ((width + 15) / 8) * ((height + 15) / 8) * components, true
		}
		pos += 2 + int(binary.BigEndian.Uint16(data[pos+2:]))
	}
	return 0, false
}

func isSOF(marker byte) bool {
	return marker >= 0xc0 && marker <= 0xcf && marker != 0xc4 && marker != 0xc8 && marker != 0xcc
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// maxSalvagedPixelBytes caps the raw scanline buffer a repaired PNG may need.
const maxSalvagedPixelBytes = 512 << 20

// repairPNG inflates whatever IDAT data survived, zero-fills the missing
// scanlines and re-emits a minimal PNG with fresh checksums. Interlaced
// images are not repaired.
func repairPNG(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil, errors.New("not a png stream")
	}

	var ihdr, plte, trns []byte
	var idat bytes.Buffer
	rest := data[len(pngSignature):]
chunks:
	for len(rest) >= 8 {
		n := int64(binary.BigEndian.Uint32(rest[:4]))
		kind := string(rest[4:8])
		body := rest[8:]
		truncated := n > int64(len(body))
		if truncated {
			n = int64(len(body))
		}
		chunk := body[:n]
		switch kind {
		case "IHDR":
			ihdr = chunk
		case "PLTE":
			plte = chunk
		case "tRNS":
			trns = chunk
		case "IDAT":
			idat.Write(chunk)
		case "IEND":
			break chunks
		}
		if truncated || int64(len(body)) < n+4 {
			break
		}
		rest = body[n+4:]
	}

	if len(ihdr) != 13 {
		return nil, errors.New("png header missing")
	}
	if ihdr[12] != 0 {
		return nil, errors.New("interlaced png")
	}
	width := int64(binary.BigEndian.Uint32(ihdr[0:4]))
	height := int64(binary.BigEndian.Uint32(ihdr[4:8]))
	channels, ok := pngChannels(ihdr[9])
	if !ok {
		return nil, errors.New("unknown png color type")
	}
	rowBytes := (width*channels*int64(ihdr[8]) + 7) / 8
	want := height * (rowBytes + 1)
	if want <= 0 || want > maxSalvagedPixelBytes {
		return nil, errors.New("png dimensions out of range")
	}

	zr, err := zlib.NewReader(&idat)
	if err != nil {
		return nil, err
	}
	// A cut stream ends in io.ErrUnexpectedEOF after yielding what it could.
	raw, _ := io.ReadAll(io.LimitReader(zr, want))
	if len(raw) == 0 {
		return nil, errors.New("no png pixel data")
	}
	pixels := make([]byte, want)
	copy(pixels, raw)

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(pixels); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.Write(pngSignature)
	writePNGChunk(&out, "IHDR", ihdr)
	if plte != nil {
		writePNGChunk(&out, "PLTE", plte)
	}
	if trns != nil {
		writePNGChunk(&out, "tRNS", trns)
	}
	writePNGChunk(&out, "IDAT", compressed.Bytes())
	writePNGChunk(&out, "IEND", nil)
	return out.Bytes(), nil
}

func pngChannels(colorType byte) (int64, bool) {
	switch colorType {
	case 0, 3:
		return 1, true
	case 4:
		return 2, true
	case 2:
		return 3, true
	case 6:
		return 4, true
	default:
		return 0, false
	}
}

func writePNGChunk(w *bytes.Buffer, kind string, body []byte) {
	var header [8]byte
	binary.BigEndian.PutUint32(header[:4], uint32(len(body)))
	copy(header[4:], kind)
	w.Write(header[:])
	w.Write(body)

	crc := crc32.NewIEEE()
	crc.Write(header[4:])
	crc.Write(body)
	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], crc.Sum32())
	w.Write(sum[:])
}

// trimGIF cuts the stream after the last complete frame and appends a
// trailer. It fails when not even the first frame is complete.
func trimGIF(data []byte) ([]byte, bool) {
	if len(data) < 13 || !(bytes.HasPrefix(data, []byte("GIF87a")) || bytes.HasPrefix(data, []byte("GIF89a"))) {
		return nil, false
	}
	pos := 13
	if flags := data[10]; flags&0x80 != 0 {
		pos += 3 << ((flags & 0x07) + 1)
	}

	end, frames := 0, 0
walk:
	for pos < len(data) {
		switch data[pos] {
		case 0x21:
			next, ok := skipSubBlocks(data, pos+2)
			if !ok {
				break walk
			}
			pos = next
		case 0x2c:
			if pos+10 > len(data) {
				break walk
			}
			next := pos + 10
			if flags := data[pos+9]; flags&0x80 != 0 {
				next += 3 << ((flags & 0x07) + 1)
			}
			// LZW minimum code size precedes the image data.
			next, ok := skipSubBlocks(data, next+1)
			if !ok {
				break walk
			}
			pos, end = next, next
			frames++
		default:
			break walk
		}
	}
	if frames == 0 {
		return nil, false
	}

	out := make([]byte, end+1)
	copy(out, data[:end])
	out[end] = 0x3b
	return out, true
}

// skipSubBlocks returns the offset after the block terminator starting at pos.
func skipSubBlocks(data []byte, pos int) (int, bool) {
	for pos < len(data) {
		n := int(data[pos])
		pos++
		if n == 0 {
			return pos, true
		}
		pos += n
	}
	return 0, false
}
