package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/eleven-am/burst-camera/internal/dto"
	"github.com/eleven-am/burst-camera/internal/session"
	"github.com/eleven-am/burst-camera/internal/shared"
	"github.com/gorilla/websocket"
)

const usage = `usage: burst [flags] <command>

commands:
  available   report whether a camera can be enumerated
  initialize  select and bind a camera
  preview     open the camera and start preview
  capture     capture a burst into -folder
  status      print the camera status
  stop        abandon the running burst
  shutdown    release the camera
  bursts      list recorded bursts
  watch       print notifications until interrupted

flags:
`

type client struct {
	base string
	http *http.Client
}

func main() {
	addr := flag.String("addr", "localhost:8080", "daemon address")
	folder := flag.String("folder", "", "destination folder for capture")
	wait := flag.Bool("wait", true, "wait for the burst to finish")
	timeout := flag.Duration("timeout", 30*time.Second, "request timeout")
	limit := flag.Int("limit", 20, "bursts to list")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	c := &client{
		base: "http://" + *addr + "/v1/camera",
		http: &http.Client{Timeout: *timeout},
	}

	var err error
	switch cmd := flag.Arg(0); cmd {
	case "available":
		var resp dto.AvailabilityResponse
		if err = c.do(http.MethodGet, "/available", nil, &resp); err == nil {
			fmt.Println(resp.Available)
		}
	case "initialize":
		var resp dto.CameraResponse
		if err = c.do(http.MethodPost, "/initialize", nil, &resp); err == nil {
			fmt.Printf("bound camera %s (%s)\n", resp.Camera.ID, resp.Camera.Facing)
		}
	case "preview":
		var resp dto.StatusResponse
		if err = c.do(http.MethodPost, "/preview", nil, &resp); err == nil {
			fmt.Printf("camera %s %s\n", resp.CameraID, resp.State)
		}
	case "capture":
		err = c.capture(*folder, *wait)
	case "status":
		var resp dto.StatusResponse
		if err = c.do(http.MethodGet, "/status", nil, &resp); err == nil {
			printJSON(resp)
		}
	case "stop":
		err = c.do(http.MethodPost, "/stop", nil, nil)
	case "shutdown":
		err = c.do(http.MethodPost, "/shutdown", nil, nil)
	case "bursts":
		var resp dto.BurstListResponse
		if err = c.do(http.MethodGet, fmt.Sprintf("/bursts?limit=%d", *limit), nil, &resp); err == nil {
			for _, b := range resp.Bursts {
				fmt.Printf("%s  %-8s  %d/%d  %s  %s\n", b.ID, b.Outcome, b.Completed, b.Planned, b.FinishedAt, b.Folder)
			}
		}
	case "watch":
		err = watch(*addr)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "burst: %v\n", err)
		os.Exit(1)
	}
}

func (c *client) capture(folder string, wait bool) error {
	if folder == "" {
		return fmt.Errorf("-folder is required")
	}
	body := dto.CaptureRequest{Folder: folder}

	if !wait {
		var resp dto.CaptureResponse
		if err := c.do(http.MethodPost, "/capture", body, &resp); err != nil {
			return err
		}
		fmt.Printf("burst %s accepted: %d frames into %s\n", resp.BurstID, len(resp.Plan), resp.Folder)
		return nil
	}

	var resp dto.ResultResponse
	if err := c.do(http.MethodPost, "/capture?wait=true", body, &resp); err != nil {
		return err
	}
	fmt.Printf("burst %s %s: %d/%d frames\n", resp.BurstID, resp.Outcome, len(resp.Files), resp.Planned)
	for _, f := range resp.Files {
		fmt.Println("  " + f)
	}
	for _, f := range resp.Failed {
		fmt.Printf("  frame %d failed: %s\n", f.Index, f.Error)
	}
	return nil
}

func (c *client) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr shared.APIError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Code == "" {
			return fmt.Errorf("%s %s: %s", method, path, resp.Status)
		}
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func watch(addr string) error {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/v1/camera/events"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u.String(), err)
	}
	defer conn.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	done := make(chan error, 1)
	go func() {
		for {
			var n session.Notification
			if err := conn.ReadJSON(&n); err != nil {
				done <- err
				return
			}
			printNotification(n)
		}
	}()

	select {
	case err := <-done:
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil
		}
		return err
	case <-interrupt:
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		return conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	}
}

func printNotification(n session.Notification) {
	ts := n.At.Format("15:04:05.000")
	switch n.Kind {
	case session.NotifyProgress:
		p := n.Status.Progress
		fmt.Printf("%s progress %d/%d %s\n", ts, p.Completed, p.PlanLength, p.LastError)
	case session.NotifyResult:
		if n.Result != nil {
			fmt.Printf("%s result %s %s %d files\n", ts, n.Result.ID, n.Result.Outcome, len(n.Result.Files))
		}
	case session.NotifyFault:
		fmt.Printf("%s fault %s\n", ts, n.Error)
	default:
		fmt.Printf("%s state %s\n", ts, n.Status.State)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
