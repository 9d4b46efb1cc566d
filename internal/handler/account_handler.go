package handler

import (
	"net/http"

	"backoffice/internal/service"
	"backoffice/pkg/pagination"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

type AccountHandler struct {
	accountService service.AccountService
}

func NewAccountHandler(accountService service.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

func (h *AccountHandler) RegisterRoutes(router *gin.RouterGroup) {
	accounts := router.Group("/accounts")
	{
		accounts.POST("", h.OpenAccount)
		accounts.PUT("/:id/deactivate", h.Deactivate)
		accounts.GET("/:id/statement", h.Statement)
		accounts.GET("/:id/verify", h.Verify)
		accounts.GET("/:id/summary", h.Summary)
	}
}

// OpenAccount opens a ledger account for an owner
// @Summary      Open account
// @Tags         accounts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.OpenAccountRequest  true  "Open Account Payload"
// @Success      201      {object}  response.Response{data=service.AccountResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/accounts [post]
func (h *AccountHandler) OpenAccount(c *gin.Context) {
	var req service.OpenAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidPayload(c, err)
		return
	}

	account, err := h.accountService.OpenAccount(c.Request.Context(), callerOf(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, account))
}

// Deactivate freezes an account against further postings
// @Summary      Deactivate account
// @Tags         accounts
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Account ID"
// @Success      200  {object}  response.Response{data=service.AccountResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/accounts/{id}/deactivate [put]
func (h *AccountHandler) Deactivate(c *gin.Context) {
	account, err := h.accountService.Deactivate(c.Request.Context(), callerOf(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, account))
}

// Statement lists an account's ledger entries, newest first
// @Summary      Account statement
// @Tags         accounts
// @Security     BearerAuth
// @Produce      json
// @Param        id     path      string  true   "Account ID"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=service.StatementResponse}
// @Failure      404    {object}  response.Response
// @Router       /api/accounts/{id}/statement [get]
func (h *AccountHandler) Statement(c *gin.Context) {
	p := pagination.Parse(c)

	statement, err := h.accountService.Statement(c.Request.Context(), callerOf(c), c.Param("id"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, statement))
}

// Verify checks the cached balance against the ledger entries
// @Summary      Verify account
// @Description  Recomputes the balance from ledger entries. A mismatch is reported as a 500 and logged.
// @Tags         accounts
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Account ID"
// @Success      200  {object}  response.Response{data=service.VerifyAccountResponse}
// @Failure      500  {object}  response.Response
// @Router       /api/accounts/{id}/verify [get]
func (h *AccountHandler) Verify(c *gin.Context) {
	res, err := h.accountService.Verify(c.Request.Context(), callerOf(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Summary totals postings per entry kind over a date range
// @Summary      Account summary
// @Tags         accounts
// @Security     BearerAuth
// @Produce      json
// @Param        id    path      string  true   "Account ID"
// @Param        from  query     string  false  "Start date (YYYY-MM-DD), defaults to the first day of this month"
// @Param        to    query     string  false  "End date (YYYY-MM-DD), defaults to the last day of this month"
// @Success      200   {object}  response.Response{data=service.AccountSummaryResponse}
// @Failure      422   {object}  response.Response
// @Router       /api/accounts/{id}/summary [get]
func (h *AccountHandler) Summary(c *gin.Context) {
	res, err := h.accountService.Summary(c.Request.Context(), callerOf(c), c.Param("id"), c.Query("from"), c.Query("to"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
