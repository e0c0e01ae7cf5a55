package clip

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/starwatch-station/asteria/internal/asteria/frame"
)

// WritePGM writes f as a Netpbm P5 raw grayscale file with `# key=value`
// comment header lines carrying the metadata recognized in spec §6.
func WritePGM(w io.Writer, f *frame.Frame) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "P5\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(bw, "# epochTimeUs=%d\n", f.EpochMicros); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(bw, "# v4l2_field_name=%s\n", f.FieldOrder.String()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(bw, "%d %d\n255\n", f.Width, f.Height); err != nil {
		return err
	}
	if _, err := bw.Write(f.Samples); err != nil {
		return err
	}
	return bw.Flush()
}

// ReadPGM parses a Netpbm P5 file previously written by WritePGM, tolerating
// any of the recognized `# key=value` comment headers appearing in any order
// or not at all (unrecognized headers, e.g. v4l2_field_index, are ignored).
func ReadPGM(r io.Reader) (*frame.Frame, error) {
	br := bufio.NewReader(r)

	magic, err := readToken(br)
	if err != nil {
		return nil, fmt.Errorf("pgm: reading magic: %w", err)
	}
	if magic != "P5" {
		return nil, fmt.Errorf("pgm: unsupported magic %q", magic)
	}

	var epochMicros int64
	fo := frame.Progressive
	haveFO := false

	width, err := readIntTokenSkippingComments(br, &epochMicros, &fo, &haveFO)
	if err != nil {
		return nil, fmt.Errorf("pgm: reading width: %w", err)
	}
	height, err := readIntTokenSkippingComments(br, &epochMicros, &fo, &haveFO)
	if err != nil {
		return nil, fmt.Errorf("pgm: reading height: %w", err)
	}
	maxval, err := readIntTokenSkippingComments(br, &epochMicros, &fo, &haveFO)
	if err != nil {
		return nil, fmt.Errorf("pgm: reading maxval: %w", err)
	}
	if maxval != 255 {
		return nil, fmt.Errorf("pgm: unsupported maxval %d", maxval)
	}

	samples := make([]byte, width*height)
	if _, err := io.ReadFull(br, samples); err != nil {
		return nil, fmt.Errorf("pgm: reading samples: %w", err)
	}

	_ = haveFO
	return frame.NewFrame(width, height, samples, epochMicros, fo)
}

// readToken reads whitespace-delimited tokens, skipping `#`-prefixed
// comment lines, and returns the first non-comment token.
func readToken(br *bufio.Reader) (string, error) {
	var buf bytes.Buffer
	skippingComment := false
	for {
		b, err := br.ReadByte()
		if err != nil {
			if buf.Len() > 0 {
				return buf.String(), nil
			}
			return "", err
		}
		if skippingComment {
			if b == '\n' {
				skippingComment = false
			}
			continue
		}
		if b == '#' && buf.Len() == 0 {
			skippingComment = true
			continue
		}
		if b == ' ' || b == '\t' || b == '\n' || b == '\r' {
			if buf.Len() > 0 {
				return buf.String(), nil
			}
			continue
		}
		buf.WriteByte(b)
	}
}

// readIntTokenSkippingComments reads the next whitespace-delimited integer
// token, but first consumes any `# key=value` comment lines, populating
// epochMicros/fo from recognized keys.
func readIntTokenSkippingComments(br *bufio.Reader, epochMicros *int64, fo *frame.FieldOrder, haveFO *bool) (int, error) {
	for {
		line, err := peekCommentOrToken(br)
		if err != nil {
			return 0, err
		}
		if strings.HasPrefix(line, "#") {
			parseCommentHeader(strings.TrimPrefix(line, "#"), epochMicros, fo, haveFO)
			continue
		}
		return strconv.Atoi(line)
	}
}

// peekCommentOrToken returns either a full `#...` comment line (without the
// trailing newline) or the next plain token.
func peekCommentOrToken(br *bufio.Reader) (string, error) {
	// Skip leading whitespace.
	for {
		b, err := br.ReadByte()
		if err != nil {
			return "", err
		}
		if b == ' ' || b == '\t' || b == '\n' || b == '\r' {
			continue
		}
		if b == '#' {
			line, err := br.ReadString('\n')
			if err != nil && err != io.EOF {
				return "", err
			}
			return "#" + strings.TrimRight(line, "\r\n"), nil
		}
		if err := br.UnreadByte(); err != nil {
			return "", err
		}
		break
	}
	return readToken(br)
}

func parseCommentHeader(kv string, epochMicros *int64, fo *frame.FieldOrder, haveFO *bool) {
	kv = strings.TrimSpace(kv)
	parts := strings.SplitN(kv, "=", 2)
	if len(parts) != 2 {
		return
	}
	key, val := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	switch key {
	case "epochTimeUs":
		if v, err := strconv.ParseInt(val, 10, 64); err == nil {
			*epochMicros = v
		}
	case "v4l2_field_name":
		*fo = frame.ParseFieldOrder(val)
		*haveFO = true
	case "v4l2_field_index":
		// Cosmetic only, per spec §6.
	}
}

// WritePFM writes an ImageF64 as a Netpbm PF file: magic "PF", dimensions,
// a trailing scale-factor line (negative means little-endian, which is
// what this implementation always emits), then row-major float32 samples.
func WritePFM(w io.Writer, im *frame.ImageF64) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "PF\n%d %d\n-1.0\n", im.Width, im.Height); err != nil {
		return err
	}
	buf := make([]byte, 4)
	for _, v := range im.Samples {
		bits := math.Float32bits(float32(v))
		buf[0] = byte(bits)
		buf[1] = byte(bits >> 8)
		buf[2] = byte(bits >> 16)
		buf[3] = byte(bits >> 24)
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadPFM parses a PFM file previously written by WritePFM.
func ReadPFM(r io.Reader) (*frame.ImageF64, error) {
	br := bufio.NewReader(r)
	magic, err := readToken(br)
	if err != nil {
		return nil, fmt.Errorf("pfm: reading magic: %w", err)
	}
	if magic != "PF" {
		return nil, fmt.Errorf("pfm: unsupported magic %q", magic)
	}
	widthTok, err := readToken(br)
	if err != nil {
		return nil, fmt.Errorf("pfm: reading width: %w", err)
	}
	width, err := strconv.Atoi(widthTok)
	if err != nil {
		return nil, fmt.Errorf("pfm: invalid width: %w", err)
	}
	heightTok, err := readToken(br)
	if err != nil {
		return nil, fmt.Errorf("pfm: reading height: %w", err)
	}
	height, err := strconv.Atoi(heightTok)
	if err != nil {
		return nil, fmt.Errorf("pfm: invalid height: %w", err)
	}
	scaleTok, err := readToken(br)
	if err != nil {
		return nil, fmt.Errorf("pfm: reading scale: %w", err)
	}
	littleEndian := true
	if scale, err := strconv.ParseFloat(scaleTok, 64); err == nil {
		littleEndian = scale < 0
	}

	im := frame.NewImageF64(width, height, 0)
	buf := make([]byte, 4)
	for i := 0; i < width*height; i++ {
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("pfm: reading sample %d: %w", i, err)
		}
		var bits uint32
		if littleEndian {
			bits = uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
		} else {
			bits = uint32(buf[3]) | uint32(buf[2])<<8 | uint32(buf[1])<<16 | uint32(buf[0])<<24
		}
		im.Samples[i] = float64(math.Float32frombits(bits))
	}
	return im, nil
}
