package ocr

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/kdimtricp/popscan/internal/candidates"
	"github.com/kdimtricp/popscan/internal/models"
	"github.com/kdimtricp/popscan/internal/storage"
)

const defaultLanguage = "eng"

type EngineConfig struct {
	Path     string
	Language string
	PSM      int
	Storage  storage.Storage
}

// EngineHandle owns the tesseract engine. The engine is created on first use
// and released by Close; afterwards the handle reports ErrEngineUnavailable.
type EngineHandle struct {
	cfg EngineConfig

	mu       sync.Mutex
	engine   *Engine
	ownedDir *storage.LocalStorage
	closed   bool
}

func NewEngineHandle(cfg EngineConfig) *EngineHandle {
	if cfg.Path == "" {
		cfg.Path = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = defaultLanguage
	}
	return &EngineHandle{cfg: cfg}
}

// Available reports whether the tesseract binary can be found.
func (h *EngineHandle) Available() error {
	if _, err := exec.LookPath(h.cfg.Path); err != nil {
		return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	return nil
}

// Engine returns the engine, creating it if needed.
func (h *EngineHandle) Engine(ctx context.Context) (*Engine, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, fmt.Errorf("%w: handle closed", ErrEngineUnavailable)
	}
	if h.engine != nil {
		return h.engine, nil
	}

	binary, err := exec.LookPath(h.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	out, err := exec.CommandContext(ctx, binary, "--version").CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("%w: %s --version: %v", ErrEngineUnavailable, binary, err)
	}

	store := h.cfg.Storage
	if store == nil {
		tmp, err := storage.NewTempStorage()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
		}
		h.ownedDir = tmp
		store = tmp
	}

	h.engine = &Engine{
		binary:   binary,
		version:  firstLine(string(out)),
		language: h.cfg.Language,
		psm:      h.cfg.PSM,
		store:    store,
	}
	return h.engine, nil
}

// Close releases the engine. It is safe to call more than once.
func (h *EngineHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	h.engine = nil
	if h.ownedDir != nil {
		dir := h.ownedDir
		h.ownedDir = nil
		return dir.RemoveAll()
	}
	return nil
}

// Engine runs the tesseract binary on frames written to storage.
type Engine struct {
	binary   string
	version  string
	language string
	psm      int
	store    storage.Storage
}

func (e *Engine) Version() string {
	return e.version
}

// Recognition is the line-level output of one tesseract run.
type Recognition struct {
	Lines []candidates.Line
	Text  string
}

// Recognize runs tesseract on image and groups its words into lines.
func (e *Engine) Recognize(ctx context.Context, image []byte, contentType string) (*Recognition, error) {
	name, err := e.store.SaveFrame(bytes.NewReader(image), storage.FrameInfo{
		ContentType: contentType,
		Size:        int64(len(image)),
	})
	if err != nil {
		return nil, fmt.Errorf("storing frame: %w", err)
	}
	defer e.store.DeleteFrame(name)

	path, err := e.store.Path(name)
	if err != nil {
		return nil, err
	}

	args := []string{path, "stdout", "-l", e.language}
	if e.psm > 0 {
		args = append(args, "--psm", strconv.Itoa(e.psm))
	}
	args = append(args, "tsv")

	cmd := exec.CommandContext(ctx, e.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("tesseract failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	lines, err := parseTSV(&stdout)
	if err != nil {
		return nil, err
	}
	text := make([]string, len(lines))
	for i, l := range lines {
		text[i] = l.Text
	}
	return &Recognition{Lines: lines, Text: strings.Join(text, "\n")}, nil
}

const (
	colLevel = iota
	colPage
	colBlock
	colPar
	colLine
	colWord
	colLeft
	colTop
	colWidth
	colHeight
	colConf
	colText
	tsvColumns
)

const wordLevel = "5"

type lineAcc struct {
	words   []string
	confSum float64
	confN   int
	box     models.BoundingBox
	hasBox  bool
}

func (a *lineAcc) addBox(left, top, width, height int) {
	if !a.hasBox {
		a.box = models.BoundingBox{Left: left, Top: top, Width: width, Height: height}
		a.hasBox = true
		return
	}
	right := max(a.box.Left+a.box.Width, left+width)
	bottom := max(a.box.Top+a.box.Height, top+height)
	a.box.Left = min(a.box.Left, left)
	a.box.Top = min(a.box.Top, top)
	a.box.Width = right - a.box.Left
	a.box.Height = bottom - a.box.Top
}

// parseTSV groups word rows of tesseract TSV output into lines in reading
// order. Line confidence is the mean word confidence on a 0-100 scale.
func parseTSV(r io.Reader) ([]candidates.Line, error) {
	var order []string
	acc := make(map[string]*lineAcc)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	header := true
	for scanner.Scan() {
		if header {
			header = false
			if strings.HasPrefix(scanner.Text(), "level") {
				continue
			}
		}
		fields := strings.SplitN(scanner.Text(), "\t", tsvColumns)
		if len(fields) < tsvColumns || fields[colLevel] != wordLevel {
			continue
		}
		word := strings.TrimSpace(fields[colText])
		if word == "" {
			continue
		}

		key := strings.Join(fields[colPage:colWord], ".")
		line, ok := acc[key]
		if !ok {
			line = &lineAcc{}
			acc[key] = line
			order = append(order, key)
		}
		line.words = append(line.words, word)
		if conf, err := strconv.ParseFloat(fields[colConf], 64); err == nil && conf >= 0 {
			line.confSum += conf
			line.confN++
		}
		left, errL := strconv.Atoi(fields[colLeft])
		top, errT := strconv.Atoi(fields[colTop])
		width, errW := strconv.Atoi(fields[colWidth])
		height, errH := strconv.Atoi(fields[colHeight])
		if errL == nil && errT == nil && errW == nil && errH == nil {
			line.addBox(left, top, width, height)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading tesseract output: %w", err)
	}

	lines := make([]candidates.Line, 0, len(order))
	for _, key := range order {
		a := acc[key]
		l := candidates.Line{Text: strings.Join(a.words, " ")}
		if a.confN > 0 {
			l.Confidence = a.confSum / float64(a.confN)
		}
		if a.hasBox {
			box := a.box
			l.Box = &box
		}
		lines = append(lines, l)
	}
	return lines, nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
