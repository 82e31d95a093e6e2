package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/romanzh1/vocab-srs/internal/service"
	"github.com/romanzh1/vocab-srs/pkg/clock"
)

// Handler is the thin HTTP shim over the scheduling core. There is no auth
// layer; callers identify themselves with an explicit user_id.
type Handler struct {
	svc     *service.Service
	machine *clock.Machine
}

func New(svc *service.Service, machine *clock.Machine) *Handler {
	return &Handler{svc: svc, machine: machine}
}

func (h *Handler) Register(e *echo.Echo) {
	g := e.Group("/srs")
	g.POST("/answer", h.markAnswer)
	g.GET("/status", h.srsStatus)
	g.GET("/cards/available", h.availableCards)
	g.GET("/cards/waiting-count", h.waitingCount)
	g.POST("/sweep", h.runSweep)

	g.POST("/folders", h.createFolder)
	g.POST("/folders/:id/complete", h.completeFolder)
	g.POST("/folders/:id/restart", h.restartFolder)

	g.GET("/wrong-answers/count", h.wrongAnswersCount)
	g.GET("/wrong-answers/quiz", h.wrongAnswersQuiz)
	g.POST("/wrong-answers/complete", h.completeWrongAnswer)

	tm := e.Group("/time-machine")
	tm.POST("/advance", h.timeMachineAdvance)
	tm.POST("/reset", h.timeMachineReset)
	tm.GET("/status", h.timeMachineStatus)
}

type answerRequest struct {
	UserID   int64  `json:"user_id"`
	CardID   int64  `json:"card_id"`
	FolderID *int64 `json:"folder_id"`
	Correct  bool   `json:"correct"`
}

func (h *Handler) markAnswer(c echo.Context) error {
	var req answerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserID == 0 || req.CardID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id and card_id are required")
	}

	result, err := h.svc.MarkAnswer(c.Request().Context(), req.UserID, req.CardID, req.FolderID, req.Correct)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, result)
}

func (h *Handler) srsStatus(c echo.Context) error {
	userID, err := queryUserID(c)
	if err != nil {
		return err
	}

	status, err := h.svc.GetSrsStatus(c.Request().Context(), userID)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, status)
}

func (h *Handler) availableCards(c echo.Context) error {
	userID, err := queryUserID(c)
	if err != nil {
		return err
	}

	cards, err := h.svc.GetAvailableCardsForReview(c.Request().Context(), userID)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, map[string]any{"cards": cards, "count": len(cards)})
}

func (h *Handler) waitingCount(c echo.Context) error {
	userID, err := queryUserID(c)
	if err != nil {
		return err
	}

	count, err := h.svc.GetWaitingCardsCount(c.Request().Context(), userID)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, map[string]int{"waiting_count": count})
}

func (h *Handler) runSweep(c echo.Context) error {
	report, err := h.svc.RunOverdueSweep(c.Request().Context())
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, report)
}

type createFolderRequest struct {
	UserID    int64   `json:"user_id"`
	Name      string  `json:"name"`
	CurveType string  `json:"curve_type"`
	ParentID  *int64  `json:"parent_id"`
	VocabIDs  []int64 `json:"vocab_ids"`
}

func (h *Handler) createFolder(c echo.Context) error {
	var req createFolderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserID == 0 || req.Name == "" || len(req.VocabIDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id, name and vocab_ids are required")
	}

	folder, err := h.svc.CreateManualFolder(c.Request().Context(), req.UserID, req.Name, req.CurveType, req.ParentID, req.VocabIDs)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusCreated, folder)
}

func (h *Handler) completeFolder(c echo.Context) error {
	userID, err := queryUserID(c)
	if err != nil {
		return err
	}
	folderID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	folder, err := h.svc.CompleteFolderAndScheduleNext(c.Request().Context(), userID, folderID)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, folder)
}

func (h *Handler) restartFolder(c echo.Context) error {
	userID, err := queryUserID(c)
	if err != nil {
		return err
	}
	folderID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	folder, err := h.svc.RestartMasteredFolder(c.Request().Context(), userID, folderID)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, folder)
}

func (h *Handler) wrongAnswersCount(c echo.Context) error {
	userID, err := queryUserID(c)
	if err != nil {
		return err
	}

	count, err := h.svc.GetAvailableWrongAnswersCount(c.Request().Context(), userID, queryFolderID(c))
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, map[string]int{"count": count})
}

func (h *Handler) wrongAnswersQuiz(c echo.Context) error {
	userID, err := queryUserID(c)
	if err != nil {
		return err
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	quiz, err := h.svc.GenerateWrongAnswerQuiz(c.Request().Context(), userID, queryFolderID(c), limit)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, map[string]any{"items": quiz, "count": len(quiz)})
}

type completeWrongAnswerRequest struct {
	UserID   int64   `json:"user_id"`
	VocabID  int64   `json:"vocab_id"`
	VocabIDs []int64 `json:"vocab_ids"`
	FolderID *int64  `json:"folder_id"`
}

func (h *Handler) completeWrongAnswer(c echo.Context) error {
	var req completeWrongAnswerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserID == 0 || (req.VocabID == 0 && len(req.VocabIDs) == 0) {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id and vocab_id(s) are required")
	}

	if len(req.VocabIDs) > 0 {
		completed, err := h.svc.CompleteWrongAnswers(c.Request().Context(), req.UserID, req.VocabIDs, req.FolderID)
		if err != nil {
			return mapServiceError(err)
		}
		return c.JSON(http.StatusOK, map[string]int{"completed": completed})
	}

	if err := h.svc.CompleteWrongAnswer(c.Request().Context(), req.UserID, req.VocabID, req.FolderID); err != nil {
		return mapServiceError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

type timeMachineRequest struct {
	Hours int `json:"hours"`
	Days  int `json:"days"`
}

// timeMachineAdvance shifts the shared clock forward and reruns the sweep so
// the accelerated time is immediately reflected in card phases.
func (h *Handler) timeMachineAdvance(c echo.Context) error {
	var req timeMachineRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	shift := time.Duration(req.Days)*24*time.Hour + time.Duration(req.Hours)*time.Hour
	if shift == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "hours or days is required")
	}

	offset := h.machine.Advance(shift)

	report, err := h.svc.RunOverdueSweep(c.Request().Context())
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"offset": offset.String(),
		"now":    h.machine.Now(),
		"sweep":  report,
	})
}

func (h *Handler) timeMachineReset(c echo.Context) error {
	h.machine.Reset()

	report, err := h.svc.RunOverdueSweep(c.Request().Context())
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"offset": "0s",
		"now":    h.machine.Now(),
		"sweep":  report,
	})
}

func (h *Handler) timeMachineStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"offset": h.machine.Offset().String(),
		"now":    h.machine.Now(),
	})
}

func queryUserID(c echo.Context) (int64, error) {
	userID, err := strconv.ParseInt(c.QueryParam("user_id"), 10, 64)
	if err != nil || userID == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}
	return userID, nil
}

func queryFolderID(c echo.Context) *int64 {
	folderID, err := strconv.ParseInt(c.QueryParam("folder_id"), 10, 64)
	if err != nil {
		return nil
	}
	return &folderID
}

func paramID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be numeric")
	}
	return id, nil
}

func mapServiceError(err error) error {
	switch {
	case errors.Is(err, service.ErrCardNotFound),
		errors.Is(err, service.ErrFolderNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrFolderIncomplete),
		errors.Is(err, service.ErrFolderNotMastered),
		errors.Is(err, service.ErrFolderAlreadyMastered):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNoWrongAnswers):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
