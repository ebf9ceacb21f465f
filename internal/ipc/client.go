package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) call(method string, req, resp any) error {
	return c.client.Call(serviceName+"."+method, req, resp)
}

// Start requests the daemon to start its loops.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.call("Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop its loops.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.call("Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Shutdown asks the daemon process to exit.
func (c *Client) Shutdown() (*ShutdownResponse, error) {
	var resp ShutdownResponse
	if err := c.call("Shutdown", ShutdownRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call("Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Pause suspends auto-advance.
func (c *Client) Pause() (*ToggleResponse, error) {
	var resp ToggleResponse
	if err := c.call("Pause", PauseRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Resume restarts auto-advance.
func (c *Client) Resume() (*ToggleResponse, error) {
	var resp ToggleResponse
	if err := c.call("Resume", ResumeRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Next reassigns every eligible slot immediately.
func (c *Client) Next() (*NextResponse, error) {
	var resp NextResponse
	if err := c.call("Next", NextRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Sticky toggles or sets a slot's sticky flag.
func (c *Client) Sticky(req StickyRequest) (*StickyResponse, error) {
	var resp StickyResponse
	if err := c.call("Sticky", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Grid applies a grid operation to a frame.
func (c *Client) Grid(req GridRequest) (*GridResponse, error) {
	var resp GridResponse
	if err := c.call("Grid", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Resize changes a frame's pixel dimensions.
func (c *Client) Resize(req ResizeRequest) (*ResizeResponse, error) {
	var resp ResizeResponse
	if err := c.call("Resize", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History returns recent journal entries.
func (c *Client) History(req HistoryRequest) (*HistoryResponse, error) {
	var resp HistoryResponse
	if err := c.call("History", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
