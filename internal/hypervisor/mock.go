package hypervisor

import (
	"context"
	"sync"
)

// MockClient permite tests y despliegues sin un Proxmox real.
type MockClient struct {
	mu  sync.Mutex
	vms map[int]VMStatus

	Err error
}

func NewMockClient() *MockClient {
	return &MockClient{vms: make(map[int]VMStatus)}
}

func (m *MockClient) Create(_ context.Context, spec CreateSpec) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vms[spec.VMID] = VMStatus{
		VMID:   spec.VMID,
		Name:   spec.Name,
		Status: "stopped",
		MaxMem: int64(spec.Memory) * 1024 * 1024,
	}
	return nil
}

func (m *MockClient) Start(_ context.Context, vmid int) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	vm, ok := m.vms[vmid]
	if !ok {
		return ErrVMNotFound
	}
	vm.Status = "running"
	m.vms[vmid] = vm
	return nil
}

func (m *MockClient) Stop(_ context.Context, vmid int) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	vm, ok := m.vms[vmid]
	if !ok {
		return ErrVMNotFound
	}
	vm.Status = "stopped"
	m.vms[vmid] = vm
	return nil
}

func (m *MockClient) Delete(_ context.Context, vmid int) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vms[vmid]; !ok {
		return ErrVMNotFound
	}
	delete(m.vms, vmid)
	return nil
}

func (m *MockClient) Status(_ context.Context, vmid int) (VMStatus, error) {
	if m.Err != nil {
		return VMStatus{}, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	vm, ok := m.vms[vmid]
	if !ok {
		return VMStatus{}, ErrVMNotFound
	}
	return vm, nil
}

func (m *MockClient) List(_ context.Context) ([]VMStatus, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]VMStatus, 0, len(m.vms))
	for _, vm := range m.vms {
		out = append(out, vm)
	}
	return out, nil
}
