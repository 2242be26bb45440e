package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/wemaster/booking-core/internal/domain/wallet"
	"github.com/wemaster/booking-core/internal/dto"
	"github.com/wemaster/booking-core/internal/httperr"
	"github.com/wemaster/booking-core/internal/httpresp"
	"github.com/wemaster/booking-core/internal/middleware"
	ucWallet "github.com/wemaster/booking-core/internal/usecase/wallet"
)

type WalletUseCases struct {
	Balance      *ucWallet.GetBalance
	Transactions *ucWallet.ListTransactions
	Record       *ucWallet.RecordTransaction
	Settle       *ucWallet.SettleTransaction
	Move         *ucWallet.MoveFunds
	Withdraw     *ucWallet.RequestWithdrawal
}

type WalletHandler struct {
	uc       WalletUseCases
	currency string
}

func NewWalletHandler(uc WalletUseCases, currency string) *WalletHandler {
	return &WalletHandler{uc: uc, currency: currency}
}

type RecordTransactionRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	Type        string `json:"type" binding:"required"`
	Amount      int64  `json:"amount" binding:"required"`
	RelatedID   string `json:"related_id"`
	Description string `json:"description" binding:"max=255"`
}

type WithdrawalRequest struct {
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Destination string `json:"destination" binding:"required,max=255"`
}

type SettleTransactionRequest struct {
	Status string `json:"status" binding:"required,oneof=completed failed"`
}

type MoveFundsRequest struct {
	Op        string `json:"op" binding:"required"`
	Bucket    string `json:"bucket"`
	Amount    int64  `json:"amount" binding:"required"`
	RelatedID string `json:"related_id"`
}

// ======================================================
// SELF
// ======================================================

func (h *WalletHandler) Balance(c *gin.Context) {
	bal, err := h.uc.Balance.Execute(c.Request.Context(), middleware.CurrentActor(c).ID)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.OK(c, dto.NewBalance(bal, h.currency))
}

func (h *WalletHandler) Transactions(c *gin.Context) {
	page, limit := pageQuery(c)

	filter := wallet.TxFilter{
		UserID: middleware.CurrentActor(c).ID,
		Page:   page,
		Limit:  limit,
	}
	for _, t := range listQuery(c, "type") {
		filter.Types = append(filter.Types, wallet.TxType(t))
	}
	for _, s := range listQuery(c, "status") {
		filter.Statuses = append(filter.Statuses, wallet.TxStatus(s))
	}

	txs, total, err := h.uc.Transactions.Execute(c.Request.Context(), filter)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.Page(c, txs, total, page, limit)
}

// Withdraw pays out part of the caller's available balance. The
// transaction stays processing until the processor confirms the payout.
func (h *WalletHandler) Withdraw(c *gin.Context) {
	var req WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", err.Error())
		return
	}

	tx, err := h.uc.Withdraw.Execute(c.Request.Context(), ucWallet.WithdrawalInput{
		UserID:      middleware.CurrentActor(c).ID,
		Amount:      req.Amount,
		Destination: req.Destination,
	})
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.Created(c, tx)
}

// ======================================================
// ADMIN
// ======================================================

func (h *WalletHandler) Record(c *gin.Context) {
	var req RecordTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", err.Error())
		return
	}

	userID, ok := parseUUID(c, "user_id", req.UserID)
	if !ok {
		return
	}
	relatedID, ok := optionalUUID(c, "related_id", req.RelatedID)
	if !ok {
		return
	}

	tx, err := h.uc.Record.Execute(c.Request.Context(), wallet.RecordInput{
		UserID:      userID,
		Type:        wallet.TxType(req.Type),
		Amount:      req.Amount,
		RelatedID:   relatedID,
		Description: req.Description,
	})
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.Created(c, tx)
}

func (h *WalletHandler) Settle(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req SettleTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", err.Error())
		return
	}

	tx, err := h.uc.Settle.Execute(c.Request.Context(), id, wallet.TxStatus(req.Status))
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.OK(c, tx)
}

func (h *WalletHandler) Move(c *gin.Context) {
	userID, ok := uuidParam(c, "userId")
	if !ok {
		return
	}

	var req MoveFundsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", err.Error())
		return
	}
	relatedID, ok := optionalUUID(c, "related_id", req.RelatedID)
	if !ok {
		return
	}

	bal, err := h.uc.Move.Execute(c.Request.Context(), ucWallet.MoveInput{
		UserID:    userID,
		Op:        ucWallet.Op(req.Op),
		Bucket:    wallet.Bucket(req.Bucket),
		Amount:    req.Amount,
		RelatedID: relatedID,
	})
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	httpresp.OK(c, dto.NewBalance(bal, h.currency))
}
