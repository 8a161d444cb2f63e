package overlay

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"sync"

	"golang.org/x/term"

	"go.klb.dev/cliip-show/internal/hud"
	"go.klb.dev/cliip-show/internal/raster"
)

// Cell size assumed when the terminal does not report pixels.
const (
	cellWidth  = 8
	cellHeight = 16
)

// kittyChunk is the largest base64 payload per escape sequence.
const kittyChunk = 4096

// Kitty draws sessions with the kitty terminal graphics protocol.
type Kitty struct {
	out io.Writer
	// size returns the terminal size in cells.
	size func() (cols, rows int, err error)

	mu      sync.Mutex
	nextID  uint32
	current uint32
}

// NewKitty writes graphics to out, sizing against the controlling terminal.
func NewKitty(out io.Writer) *Kitty {
	k := &Kitty{out: out, size: func() (int, int, error) { return 80, 24, nil }}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		k.size = func() (int, int, error) { return term.GetSize(fd) }
	}
	return k
}

func (k *Kitty) Show(s *hud.Session) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, s.Image); err != nil {
		return fmt.Errorf("encode hud image: %w", err)
	}

	cols, rows, err := k.size()
	if err != nil {
		return fmt.Errorf("terminal size: %w", err)
	}
	b := s.Image.Bounds()
	at := raster.Origin(image.Rect(0, 0, cols*cellWidth, rows*cellHeight), b.Dx(), b.Dy(), s.Style.Position, s.Style.Scale)

	k.mu.Lock()
	defer k.mu.Unlock()

	k.nextID++
	id := k.nextID

	var seq bytes.Buffer
	seq.WriteString("\x1b7")
	fmt.Fprintf(&seq, "\x1b[%d;%dH", at.Y/cellHeight+1, at.X/cellWidth+1)
	writeKittyImage(&seq, id, buf.Bytes())
	if k.current != 0 {
		fmt.Fprintf(&seq, "\x1b_Ga=d,d=I,i=%d,q=2\x1b\\", k.current)
	}
	seq.WriteString("\x1b8")

	if _, err := k.out.Write(seq.Bytes()); err != nil {
		return fmt.Errorf("write kitty graphics: %w", err)
	}
	k.current = id
	return nil
}

func (k *Kitty) Hide(*hud.Session) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.current == 0 {
		return nil
	}
	id := k.current
	k.current = 0
	if _, err := fmt.Fprintf(k.out, "\x1b_Ga=d,d=I,i=%d,q=2\x1b\\", id); err != nil {
		return fmt.Errorf("write kitty graphics: %w", err)
	}
	return nil
}

// writeKittyImage transmits and places a PNG in chunks. C=1 keeps the
// cursor where it is.
func writeKittyImage(w *bytes.Buffer, id uint32, pngData []byte) {
	enc := base64.StdEncoding.EncodeToString(pngData)
	first := true
	for {
		n := min(kittyChunk, len(enc))
		part := enc[:n]
		enc = enc[n:]
		more := 0
		if len(enc) > 0 {
			more = 1
		}
		if first {
			fmt.Fprintf(w, "\x1b_Ga=T,f=100,i=%d,q=2,C=1,m=%d;%s\x1b\\", id, more, part)
			first = false
		} else {
			fmt.Fprintf(w, "\x1b_Gm=%d;%s\x1b\\", more, part)
		}
		if more == 0 {
			return
		}
	}
}
