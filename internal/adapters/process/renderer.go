package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/3-lines-studio/prerender/internal/core"
	"github.com/3-lines-studio/prerender/internal/head"
)

// SocketVar tells the render server where to listen.
const SocketVar = "PRERENDER_SOCKET"

const socketTimeout = 5 * time.Second

var socketSeq atomic.Int64

// BunRenderer renders routes through a long-running bun process serving
// POST /render on a unix socket. Each worker process starts its own.
type BunRenderer struct {
	cmd     *exec.Cmd
	socket  string
	client  *http.Client
	cleanup func()
}

// NewBunRenderer runs `bun run script`.
func NewBunRenderer(script string) (*BunRenderer, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	cmd := exec.Command("bun", "run", "--smol", script)
	cmd.Dir = cwd
	return start(cmd, nil)
}

// NewBunRendererFromExecutable runs a compiled render server, calling
// cleanup once it is stopped.
func NewBunRendererFromExecutable(executablePath string, cleanup func()) (*BunRenderer, error) {
	return start(exec.Command(executablePath), cleanup)
}

func start(cmd *exec.Cmd, cleanup func()) (*BunRenderer, error) {
	socket := filepath.Join(os.TempDir(), fmt.Sprintf("prerender-%d-%d.sock", os.Getpid(), socketSeq.Add(1)))
	_ = os.Remove(socket)

	cmd.Env = append(os.Environ(), SocketVar+"="+socket)
	// stdout may be the worker signal channel; the render server logs to stderr only.
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start render server: %w", err)
	}

	if err := waitForSocket(socket, socketTimeout); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, err
	}

	r := connect(socket)
	r.cmd = cmd
	r.cleanup = cleanup
	return r, nil
}

func connect(socket string) *BunRenderer {
	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socket)
		},
	}

	return &BunRenderer{
		socket: socket,
		client: &http.Client{Transport: transport},
	}
}

func (r *BunRenderer) Stop() error {
	var err error
	if r.cmd != nil && r.cmd.Process != nil {
		err = r.cmd.Process.Kill()
		_ = r.cmd.Wait()
	}
	_ = os.Remove(r.socket)
	if r.cleanup != nil {
		r.cleanup()
	}
	return err
}

type renderRequest struct {
	Path      string         `json:"path"`
	Component string         `json:"component,omitempty"`
	Props     map[string]any `json:"props"`
	SiteData  any            `json:"siteData"`
}

type renderResponse struct {
	HTML           string         `json:"html"`
	Head           string         `json:"head"`
	HTMLAttributes string         `json:"htmlAttributes"`
	BodyAttributes string         `json:"bodyAttributes"`
	Chunks         []string       `json:"chunks"`
	Meta           map[string]any `json:"meta"`
	Error          *struct {
		Message string `json:"message"`
		Stack   string `json:"stack"`
		Errors  []struct {
			Message string `json:"message"`
			Stack   string `json:"stack"`
		} `json:"errors"`
	} `json:"error"`
}

func (r *BunRenderer) Render(ctx context.Context, rc *core.RenderContext) (string, error) {
	req := renderRequest{
		Path:      rc.Route.Path,
		Component: rc.Route.Component,
		Props:     rc.Props,
		SiteData:  rc.SiteData,
	}

	var result renderResponse
	if err := r.postJSON(ctx, "/render", req, &result); err != nil {
		return "", err
	}

	if result.Error != nil {
		var sb strings.Builder
		sb.WriteString(result.Error.Message)

		if len(result.Error.Errors) > 0 {
			sb.WriteString("\n\nErrors:")
			for i, err := range result.Error.Errors {
				fmt.Fprintf(&sb, "\n  %d. %s", i+1, err.Message)
				if err.Stack != "" {
					fmt.Fprintf(&sb, "\n     Stack: %s", err.Stack)
				}
			}
		}

		if result.Error.Stack != "" {
			fmt.Fprintf(&sb, "\n\nStack:\n%s", result.Error.Stack)
		}

		return "", fmt.Errorf("%s", sb.String())
	}

	h, err := head.Parse(result.Head)
	if err != nil {
		return "", fmt.Errorf("parse head: %w", err)
	}
	h.HTMLAttrs = head.Attrs(result.HTMLAttributes)
	h.BodyAttrs = head.Attrs(result.BodyAttributes)
	rc.Head = h

	for _, chunk := range result.Chunks {
		rc.ReportChunk(chunk)
	}
	for k, v := range result.Meta {
		rc.Meta[k] = v
	}

	return result.HTML, nil
}

func (r *BunRenderer) postJSON(ctx context.Context, endpoint string, body any, result any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://localhost"+endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("render server returned %s", resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

func waitForSocket(path string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return fmt.Errorf("timeout waiting for render socket at %s", path)
}
