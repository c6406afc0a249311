package hypervisor

import (
	"context"
	"errors"
)

// ErrVMNotFound indica que el hipervisor no conoce el vmid solicitado.
var ErrVMNotFound = errors.New("vm not found")

// CreateSpec describe la VM a aprovisionar.
type CreateSpec struct {
	Name    string
	VMID    int
	Memory  int
	Cores   int
	Storage string
	ISO     string
	Network string
}

// VMStatus resume el estado reportado por el hipervisor.
type VMStatus struct {
	VMID   int     `json:"vmid"`
	Name   string  `json:"name"`
	Status string  `json:"status"`
	Uptime int64   `json:"uptime"`
	CPU    float64 `json:"cpu"`
	Mem    int64   `json:"mem"`
	MaxMem int64   `json:"maxmem"`
}

// Client define la interfaz hacia el API de administración del hipervisor.
type Client interface {
	Create(ctx context.Context, spec CreateSpec) error
	Start(ctx context.Context, vmid int) error
	Stop(ctx context.Context, vmid int) error
	Delete(ctx context.Context, vmid int) error
	Status(ctx context.Context, vmid int) (VMStatus, error)
	List(ctx context.Context) ([]VMStatus, error)
}
