package hypervisor

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ticketLifetime es menor a las 2h que dura un ticket PVE real.
const ticketLifetime = 90 * time.Minute

// ProxmoxClient implementa Client contra el API REST de Proxmox VE.
type ProxmoxClient struct {
	baseURL  string
	user     string
	password string
	node     string
	client   *http.Client
	logger   *zap.Logger

	mu         sync.Mutex
	ticket     string
	csrfToken  string
	ticketTime time.Time
}

// NewProxmoxClient construye un cliente apuntando a /api2/json del host dado.
// Si host no trae esquema se asume https en el puerto 8006.
func NewProxmoxClient(host, user, password, node string, verifySSL bool, logger *zap.Logger) *ProxmoxClient {
	baseURL := strings.TrimRight(host, "/")
	if !strings.Contains(baseURL, "://") {
		baseURL = "https://" + baseURL + ":8006"
	}
	transport := &http.Transport{}
	if !verifySSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &ProxmoxClient{
		baseURL:  baseURL + "/api2/json",
		user:     user,
		password: password,
		node:     node,
		client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		logger: logger,
	}
}

func (c *ProxmoxClient) Create(ctx context.Context, spec CreateSpec) error {
	form := url.Values{
		"vmid":   {strconv.Itoa(spec.VMID)},
		"name":   {spec.Name},
		"memory": {strconv.Itoa(spec.Memory)},
		"cores":  {strconv.Itoa(spec.Cores)},
		"net0":   {"virtio,bridge=" + spec.Network},
	}
	if spec.Storage != "" {
		form.Set("storage", spec.Storage)
	}
	if spec.ISO != "" {
		form.Set("iso", spec.ISO)
	}
	_, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/nodes/%s/qemu", c.node), form)
	return err
}

func (c *ProxmoxClient) Start(ctx context.Context, vmid int) error {
	_, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/nodes/%s/qemu/%d/status/start", c.node, vmid), url.Values{})
	return err
}

func (c *ProxmoxClient) Stop(ctx context.Context, vmid int) error {
	_, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/nodes/%s/qemu/%d/status/stop", c.node, vmid), url.Values{})
	return err
}

func (c *ProxmoxClient) Delete(ctx context.Context, vmid int) error {
	_, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/nodes/%s/qemu/%d", c.node, vmid), nil)
	return err
}

func (c *ProxmoxClient) Status(ctx context.Context, vmid int) (VMStatus, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/nodes/%s/qemu/%d/status/current", c.node, vmid), nil)
	if err != nil {
		return VMStatus{}, err
	}
	var resp struct {
		Data VMStatus `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return VMStatus{}, fmt.Errorf("unmarshal status: %w", err)
	}
	resp.Data.VMID = vmid
	return resp.Data, nil
}

func (c *ProxmoxClient) List(ctx context.Context) ([]VMStatus, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/nodes/%s/qemu", c.node), nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Data []VMStatus `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal vm list: %w", err)
	}
	return resp.Data, nil
}

// do ejecuta un request autenticado con ticket PVE y renueva el ticket cuando
// hace falta.
func (c *ProxmoxClient) do(ctx context.Context, method, path string, form url.Values) ([]byte, error) {
	ticket, csrf, err := c.ensureTicket(ctx)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if form != nil {
		reqBody = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.AddCookie(&http.Cookie{Name: "PVEAuthCookie", Value: ticket})
	if method != http.MethodGet {
		req.Header.Set("CSRFPreventionToken", csrf)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound ||
		(resp.StatusCode == http.StatusInternalServerError && strings.Contains(string(body), "does not exist")) {
		return nil, ErrVMNotFound
	}
	if resp.StatusCode >= 400 {
		if c.logger != nil {
			c.logger.Warn("proxmox error response",
				zap.String("path", path),
				zap.Int("status", resp.StatusCode),
			)
		}
		return nil, fmt.Errorf("proxmox http error: status=%d", resp.StatusCode)
	}
	return body, nil
}

func (c *ProxmoxClient) ensureTicket(ctx context.Context) (string, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ticket != "" && time.Since(c.ticketTime) < ticketLifetime {
		return c.ticket, c.csrfToken, nil
	}

	form := url.Values{
		"username": {c.user},
		"password": {c.password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/access/ticket", strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", fmt.Errorf("create ticket request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("proxmox login: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("read ticket response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", "", fmt.Errorf("proxmox login failed: status=%d", resp.StatusCode)
	}

	var ticketResp struct {
		Data struct {
			Ticket    string `json:"ticket"`
			CSRFToken string `json:"CSRFPreventionToken"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &ticketResp); err != nil {
		return "", "", fmt.Errorf("unmarshal ticket: %w", err)
	}
	if ticketResp.Data.Ticket == "" {
		return "", "", fmt.Errorf("proxmox login: empty ticket")
	}

	c.ticket = ticketResp.Data.Ticket
	c.csrfToken = ticketResp.Data.CSRFToken
	c.ticketTime = time.Now()
	return c.ticket, c.csrfToken, nil
}
