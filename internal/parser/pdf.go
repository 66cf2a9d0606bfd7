package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/ledongthuc/pdf"
)

const pdfTool = "pdftotext"

// ErrPDFToolNotFound is returned when pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH (install poppler-utils)")

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	LookPath(name string) (string, error)
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) LookPath(name string) (string, error) { return exec.LookPath(name) }

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// parsePDF reads the text layer in-process. When that fails or finds no text
// and pdftotext is installed, the upload is handed to pdftotext instead.
func (p *Parser) parsePDF(ctx context.Context, filename string, data []byte) (string, error) {
	text, readErr := readPDF(data)
	if readErr == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}
	if readErr == nil {
		readErr = errors.New("no text layer")
	}

	if p.runner == nil {
		return "", extractionError(filename, "%v", readErr)
	}
	if _, err := p.runner.LookPath(pdfTool); err != nil {
		return "", extractionError(filename, "%v", readErr)
	}

	out, err := p.runPDFTool(ctx, data)
	if err != nil {
		return "", extractionError(filename, "%v; pdftotext failed: %v", readErr, err)
	}
	return out, nil
}

func readPDF(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return string(b), nil
}

// runPDFTool writes the upload to a temp file and runs pdftotext on it.
func (p *Parser) runPDFTool(ctx context.Context, data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "docqa-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	out, err := p.runner.Run(ctx, pdfTool, "-layout", "-enc", "UTF-8", tmp.Name(), "-")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
