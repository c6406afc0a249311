package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vmforge/internal/domain"
	"vmforge/internal/hypervisor"
)

// VMHandler expone las rutas de ciclo de vida de VMs. Son pasamanos delgados
// sobre el cliente de hipervisor inyectado.
type VMHandler struct {
	logger *zap.Logger
	hv     hypervisor.Client
}

func NewVMHandler(logger *zap.Logger, hv hypervisor.Client) *VMHandler {
	return &VMHandler{
		logger: logger,
		hv:     hv,
	}
}

// CreateVM maneja POST /api/create-vm: crea, arranca y reporta estado.
func (h *VMHandler) CreateVM(c *gin.Context) {
	var req struct {
		Name        string             `json:"name" binding:"required"`
		VMID        int                `json:"vmid" binding:"required"`
		Memory      int                `json:"memory" binding:"required"`
		Cores       int                `json:"cores" binding:"required"`
		Storage     string             `json:"storage"`
		ISO         string             `json:"iso"`
		Network     string             `json:"network" binding:"required"`
		PaymentInfo domain.PaymentInfo `json:"payment_info" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create vm request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	h.logPayment("create", req.PaymentInfo)

	ctx := c.Request.Context()
	spec := hypervisor.CreateSpec{
		Name:    req.Name,
		VMID:    req.VMID,
		Memory:  req.Memory,
		Cores:   req.Cores,
		Storage: req.Storage,
		ISO:     req.ISO,
		Network: req.Network,
	}
	if err := h.hv.Create(ctx, spec); err != nil {
		h.logger.Error("create vm failed", zap.Error(err), zap.Int("vmid", req.VMID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create vm"})
		return
	}
	if err := h.hv.Start(ctx, req.VMID); err != nil {
		h.logger.Error("start vm failed", zap.Error(err), zap.Int("vmid", req.VMID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start vm"})
		return
	}
	status, err := h.hv.Status(ctx, req.VMID)
	if err != nil {
		h.logger.Error("vm status failed", zap.Error(err), zap.Int("vmid", req.VMID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read vm status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":            "success",
		"message":           fmt.Sprintf("VM %s created and started successfully", req.Name),
		"vm_status":         status,
		"payment_processed": true,
		"payment_details": gin.H{
			"upi_id":   req.PaymentInfo.UPIID,
			"amount":   req.PaymentInfo.Amount,
			"currency": req.PaymentInfo.Currency,
		},
	})
}

// VMStatus maneja GET /api/vm-status/:vmid.
func (h *VMHandler) VMStatus(c *gin.Context) {
	vmid, err := strconv.Atoi(c.Param("vmid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vmid"})
		return
	}

	status, err := h.hv.Status(c.Request.Context(), vmid)
	if err != nil {
		if errors.Is(err, hypervisor.ErrVMNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("VM with ID %d not found", vmid)})
			return
		}
		h.logger.Error("vm status failed", zap.Error(err), zap.Int("vmid", vmid))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read vm status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"vm_status": status})
}

// DeleteVM maneja DELETE /api/delete-vm/:vmid. Intenta frenar la VM antes de
// borrar; un fallo del stop se ignora (puede estar apagada).
func (h *VMHandler) DeleteVM(c *gin.Context) {
	vmid, err := strconv.Atoi(c.Param("vmid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vmid"})
		return
	}

	var req struct {
		PaymentInfo domain.PaymentInfo `json:"payment_info" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid delete vm request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	h.logPayment("delete", req.PaymentInfo)

	ctx := c.Request.Context()
	if err := h.hv.Stop(ctx, vmid); err != nil {
		h.logger.Debug("stop before delete failed", zap.Error(err), zap.Int("vmid", vmid))
	}
	if err := h.hv.Delete(ctx, vmid); err != nil {
		if errors.Is(err, hypervisor.ErrVMNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("VM with ID %d not found", vmid)})
			return
		}
		h.logger.Error("delete vm failed", zap.Error(err), zap.Int("vmid", vmid))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete vm"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":            "success",
		"message":           fmt.Sprintf("VM with ID %d deleted successfully", vmid),
		"payment_processed": true,
		"payment_details": gin.H{
			"upi_id":   req.PaymentInfo.UPIID,
			"amount":   req.PaymentInfo.Amount,
			"currency": req.PaymentInfo.Currency,
		},
	})
}

// ListVMs maneja GET /api/vm-list.
func (h *VMHandler) ListVMs(c *gin.Context) {
	vms, err := h.hv.List(c.Request.Context())
	if err != nil {
		h.logger.Error("vm list failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list vms"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"vms": vms})
}

// logPayment registra el pago. No se verifica ni se cobra nada.
func (h *VMHandler) logPayment(action string, p domain.PaymentInfo) {
	currency := p.Currency
	if currency == "" {
		currency = "INR"
	}
	h.logger.Info("processing payment",
		zap.String("action", action),
		zap.String("upi_id", p.UPIID),
		zap.Float64("amount", p.Amount),
		zap.String("currency", currency),
	)
}
