package handler

import (
	"net/http"

	"backoffice/internal/service"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

type StaffHandler struct {
	salaryService service.SalaryService
}

func NewStaffHandler(salaryService service.SalaryService) *StaffHandler {
	return &StaffHandler{salaryService: salaryService}
}

func (h *StaffHandler) RegisterRoutes(router *gin.RouterGroup) {
	staff := router.Group("/staff")
	{
		staff.POST("/:id/expenses", h.RecordExpense)
		staff.POST("/:id/salary-payments", h.PaySalary)
		staff.GET("/:id/salary-preview", h.SalaryPreview)
	}
}

// RecordExpense records a salary adjustment, advance or bonus
// @Summary      Record staff expense
// @Description  Advances and bonuses are paid from the admin account. Salary adjustments change the base salary from their effective date.
// @Tags         staff
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                             true  "Staff ID"
// @Param        payload  body      service.RecordStaffExpenseRequest  true  "Staff Expense Payload"
// @Success      201      {object}  response.Response{data=service.StaffExpenseResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/staff/{id}/expenses [post]
func (h *StaffHandler) RecordExpense(c *gin.Context) {
	var req service.RecordStaffExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidPayload(c, err)
		return
	}

	expense, err := h.salaryService.RecordExpense(c.Request.Context(), callerOf(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, expense))
}

// PaySalary pays a month's salary net of advances
// @Summary      Pay salary
// @Description  Months must be paid in order, once each. Amount plus advances since the last payment may not exceed the base salary.
// @Tags         staff
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "Staff ID"
// @Param        payload  body      service.PaySalaryRequest  true  "Pay Salary Payload"
// @Success      201      {object}  response.Response{data=service.StaffExpenseResponse}
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/staff/{id}/salary-payments [post]
func (h *StaffHandler) PaySalary(c *gin.Context) {
	var req service.PaySalaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidPayload(c, err)
		return
	}

	payment, err := h.salaryService.PaySalary(c.Request.Context(), callerOf(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, payment))
}

// SalaryPreview shows what is payable for a month
// @Summary      Salary preview
// @Tags         staff
// @Security     BearerAuth
// @Produce      json
// @Param        id     path      string  true  "Staff ID"
// @Param        month  query     string  true  "Month (YYYY-MM)"
// @Success      200    {object}  response.Response{data=service.SalaryPreviewResponse}
// @Failure      422    {object}  response.Response
// @Router       /api/staff/{id}/salary-preview [get]
func (h *StaffHandler) SalaryPreview(c *gin.Context) {
	preview, err := h.salaryService.SalaryPreview(c.Request.Context(), callerOf(c), c.Param("id"), c.Query("month"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, preview))
}
