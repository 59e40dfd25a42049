package ner

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
)

// PythonConfig locates the interpreter and model for PythonTagger.
type PythonConfig struct {
	Python    string // Interpreter path, usually a venv's bin/python.
	Model     string // spaCy model name.
	ScriptDir string // Where the embedded script is written; a temp dir when empty.
}

// PythonTagger runs the embedded spaCy script as a long-lived subprocess
// and exchanges one JSON line per request. Requests are serialized.
type PythonTagger struct {
	log *slog.Logger
	cfg PythonConfig

	mu      sync.Mutex
	script  string
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	scanner *bufio.Scanner
}

func NewPythonTagger(log *slog.Logger, cfg PythonConfig) *PythonTagger {
	if cfg.Python == "" {
		cfg.Python = "python3"
	}
	if cfg.Model == "" {
		cfg.Model = "en_core_web_sm"
	}
	return &PythonTagger{log: log.With("component", "python-tagger"), cfg: cfg}
}

type pythonReply struct {
	Result
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Start launches the subprocess and waits for its READY line. Tag calls
// Start on demand, so calling it up front only surfaces setup errors early.
func (p *PythonTagger) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.startLocked()
}

func (p *PythonTagger) startLocked() error {
	if p.cmd != nil {
		return nil
	}
	if err := p.writeScriptLocked(); err != nil {
		return err
	}

	cmd := exec.Command(p.cfg.Python, p.script)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		stdin.Close()
		return fmt.Errorf("start tagger process: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	kill := func() {
		stdin.Close()
		cmd.Process.Kill()
		cmd.Wait()
	}

	configJSON, err := json.Marshal(map[string]string{"model": p.cfg.Model})
	if err != nil {
		kill()
		return fmt.Errorf("marshal config: %w", err)
	}
	if _, err := stdin.Write(append(configJSON, '\n')); err != nil {
		kill()
		return fmt.Errorf("send config: %w", err)
	}

	if !scanner.Scan() {
		kill()
		return errors.New("tagger process exited before READY")
	}
	var ready pythonReply
	if err := json.Unmarshal(scanner.Bytes(), &ready); err != nil {
		kill()
		return fmt.Errorf("parse ready message: %w", err)
	}
	if ready.Status != "READY" {
		kill()
		return fmt.Errorf("tagger not ready: %s", ready.Error)
	}

	p.cmd, p.stdin, p.scanner = cmd, stdin, scanner
	p.log.Info("tagger process ready", "python", p.cfg.Python, "model", p.cfg.Model, "pid", cmd.Process.Pid)
	return nil
}

func (p *PythonTagger) writeScriptLocked() error {
	if p.script != "" {
		return nil
	}
	dir := p.cfg.ScriptDir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "docquiz-tagger-*")
		if err != nil {
			return fmt.Errorf("create script dir: %w", err)
		}
		dir = tmp
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create script dir: %w", err)
	}
	path := filepath.Join(dir, "spacy_tagger.py")
	if err := os.WriteFile(path, []byte(embeddedPythonScript), 0o755); err != nil {
		return fmt.Errorf("write tagger script: %w", err)
	}
	p.script = path
	return nil
}

// Tag sends text to the subprocess. If ctx ends first the process is
// killed and restarted on the next call.
func (p *PythonTagger) Tag(ctx context.Context, text string) (Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := p.startLocked(); err != nil {
		return Result{}, err
	}

	req, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return Result{}, fmt.Errorf("marshal request: %w", err)
	}

	type reply struct {
		line []byte
		err  error
	}
	done := make(chan reply, 1)
	stdin, scanner := p.stdin, p.scanner
	go func() {
		if _, err := stdin.Write(append(req, '\n')); err != nil {
			done <- reply{err: fmt.Errorf("write request: %w", err)}
			return
		}
		if !scanner.Scan() {
			err := scanner.Err()
			if err == nil {
				err = io.ErrUnexpectedEOF
			}
			done <- reply{err: fmt.Errorf("read reply: %w", err)}
			return
		}
		done <- reply{line: append([]byte(nil), scanner.Bytes()...)}
	}()

	var r reply
	select {
	case <-ctx.Done():
		p.stopLocked()
		return Result{}, ctx.Err()
	case r = <-done:
	}
	if r.err != nil {
		p.stopLocked()
		return Result{}, r.err
	}

	var pr pythonReply
	if err := json.Unmarshal(r.line, &pr); err != nil {
		return Result{}, fmt.Errorf("decode reply: %w (raw: %s)", err, truncate(string(r.line), 200))
	}
	if pr.Error != "" {
		return Result{}, fmt.Errorf("tagger error: %s", pr.Error)
	}
	if err := pr.Result.Validate(text); err != nil {
		return Result{}, fmt.Errorf("tagger reply: %w", err)
	}
	return pr.Result, nil
}

func (p *PythonTagger) stopLocked() {
	if p.cmd == nil {
		return
	}
	p.stdin.Close()
	p.cmd.Process.Kill()
	p.cmd.Wait()
	p.cmd, p.stdin, p.scanner = nil, nil, nil
}

// Close stops the subprocess.
func (p *PythonTagger) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	return nil
}
