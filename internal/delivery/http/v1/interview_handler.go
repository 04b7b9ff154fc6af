package v1

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"go-interview-intake/internal/capture"
	"go-interview-intake/internal/delivery/http/response"
	"go-interview-intake/internal/domain"
	"go-interview-intake/internal/usecase"
	"go-interview-intake/pkg/apperror"
	"go-interview-intake/pkg/security"

	"github.com/gin-gonic/gin"
)

// FragmentSink receives recorder fragments and device failures from the browser.
type FragmentSink interface {
	Push(ctx context.Context, fragment []byte, mediaType string) error
	Fail(err error) error
}

// MediaTypeHeader carries the MediaRecorder mimeType when the body is sent as
// application/octet-stream.
const MediaTypeHeader = "X-Media-Type"

// maxFragmentBytes bounds one POSTed fragment.
const maxFragmentBytes = 16 << 20

type InterviewHandler struct {
	interviewUC usecase.InterviewUsecase
	exportUC    domain.ExportUsecase
	sink        FragmentSink
}

type DeviceErrorRequest struct {
	Message string `json:"message" binding:"required,max=500"`
}

func NewInterviewHandler(public *gin.RouterGroup, heavy gin.HandlerFunc, interviewUC usecase.InterviewUsecase, exportUC domain.ExportUsecase, sink FragmentSink) {
	handler := &InterviewHandler{
		interviewUC: interviewUC,
		exportUC:    exportUC,
		sink:        sink,
	}

	s := public.Group("/session")
	{
		s.GET("", handler.GetSession)
		s.POST("/start", handler.Start)
		s.POST("/cancel", handler.Cancel)
		s.POST("/recording/fragments", handler.PushFragment)
		s.POST("/recording/device-error", handler.ReportDeviceError)
		s.POST("/recording/stop", handler.StopRecording)
		s.GET("/recording", handler.GetRecording)
		s.POST("/retake", handler.Retake)
		s.POST("/analyze", heavy, handler.Analyze)
		s.PUT("/profile", handler.UpdateProfile)
		s.POST("/discard", handler.Discard)
		s.POST("/confirm", heavy, handler.Confirm)
		s.POST("/reset", handler.Reset)
	}

	public.GET("/interviews/export", handler.ExportInterviews)
}

// GetSession godoc
// @Summary      Current session
// @Description  Returns the wizard step, countdown, profile, recording info and saved URLs.
// @Tags         session
// @Produce      json
// @Success      200  {object}  response.Response{data=usecase.Snapshot}
// @Router       /session [get]
func (h *InterviewHandler) GetSession(c *gin.Context) {
	response.Success(c, http.StatusOK, "Session state", h.interviewUC.Snapshot())
}

// Start godoc
// @Summary      Start recording
// @Description  Moves from the landing step to recording and acquires the capture device.
// @Tags         session
// @Produce      json
// @Success      200  {object}  response.Response{data=usecase.Snapshot}
// @Failure      409  {object}  response.Response
// @Router       /session/start [post]
func (h *InterviewHandler) Start(c *gin.Context) {
	h.transition(c, h.interviewUC.Start, "Recording started")
}

// Cancel godoc
// @Summary      Cancel recording
// @Tags         session
// @Produce      json
// @Success      200  {object}  response.Response{data=usecase.Snapshot}
// @Failure      409  {object}  response.Response
// @Router       /session/cancel [post]
func (h *InterviewHandler) Cancel(c *gin.Context) {
	h.transition(c, h.interviewUC.Cancel, "Recording cancelled")
}

// PushFragment godoc
// @Summary      Push a recorder fragment
// @Description  Appends one MediaRecorder chunk to the active recording. The raw body is the chunk.
// @Tags         recording
// @Accept       octet-stream
// @Produce      json
// @Param        X-Media-Type  header  string  false  "MediaRecorder mimeType"
// @Success      202  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Failure      413  {object}  response.Response
// @Router       /session/recording/fragments [post]
func (h *InterviewHandler) PushFragment(c *gin.Context) {
	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxFragmentBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.Error(apperror.New(http.StatusRequestEntityTooLarge, apperror.KindValidation, "Recording fragment too large", err))
			return
		}
		c.Error(apperror.BadRequest("Could not read recording fragment"))
		return
	}
	if len(data) == 0 {
		c.Error(apperror.Validation("Recording fragment is empty", nil))
		return
	}

	if err := h.sink.Push(c.Request.Context(), data, fragmentMediaType(c, data)); err != nil {
		if errors.Is(err, capture.ErrNotCapturing) {
			c.Error(apperror.InvalidTransition("No recording in progress"))
			return
		}
		c.Error(apperror.Internal(err))
		return
	}
	response.Success(c, http.StatusAccepted, "Fragment accepted", gin.H{"bytes": len(data)})
}

// fragmentMediaType prefers the declared type and sniffs the bytes otherwise.
func fragmentMediaType(c *gin.Context, data []byte) string {
	declared := c.GetHeader(MediaTypeHeader)
	if declared == "" {
		if ct := c.ContentType(); strings.HasPrefix(ct, "video/") || strings.HasPrefix(ct, "audio/") {
			declared = c.GetHeader("Content-Type")
		}
	}
	if declared != "" {
		// MediaRecorder emits "video/webm;codecs=vp9,opus", whose unquoted
		// comma fails parameter parsing even though the type itself is fine.
		mediaType, _, err := mime.ParseMediaType(declared)
		if (err == nil || errors.Is(err, mime.ErrInvalidMediaParameter)) && mediaType != "" {
			return strings.TrimSpace(declared)
		}
	}
	return security.SniffMediaType(data)
}

// ReportDeviceError godoc
// @Summary      Report a capture device failure
// @Description  Browser-side permission or device errors end the recording with a device error.
// @Tags         recording
// @Accept       json
// @Produce      json
// @Param        body  body      DeviceErrorRequest  true  "Failure"
// @Success      202   {object}  response.Response
// @Failure      409   {object}  response.Response
// @Router       /session/recording/device-error [post]
func (h *InterviewHandler) ReportDeviceError(c *gin.Context) {
	var req DeviceErrorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest(err.Error()))
		return
	}
	if err := h.sink.Fail(apperror.Device(req.Message, nil)); err != nil {
		c.Error(apperror.InvalidTransition("No recording in progress"))
		return
	}
	response.Success(c, http.StatusAccepted, "Device error recorded", nil)
}

// StopRecording godoc
// @Summary      Stop recording early
// @Tags         recording
// @Produce      json
// @Success      200  {object}  response.Response{data=usecase.Snapshot}
// @Failure      409  {object}  response.Response
// @Router       /session/recording/stop [post]
func (h *InterviewHandler) StopRecording(c *gin.Context) {
	h.transition(c, h.interviewUC.StopRecording, "Recording stopped")
}

// GetRecording godoc
// @Summary      Recording preview
// @Description  Streams the held recording bytes for playback.
// @Tags         recording
// @Produce      octet-stream
// @Success      200
// @Failure      404  {object}  response.Response
// @Router       /session/recording [get]
func (h *InterviewHandler) GetRecording(c *gin.Context) {
	rec, err := h.interviewUC.Recording(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.Data(http.StatusOK, rec.Type(), rec.Data)
}

// Retake godoc
// @Summary      Retake
// @Description  Discards the recording and starts a new one; also restarts capture after a device error.
// @Tags         session
// @Produce      json
// @Success      200  {object}  response.Response{data=usecase.Snapshot}
// @Failure      409  {object}  response.Response
// @Router       /session/retake [post]
func (h *InterviewHandler) Retake(c *gin.Context) {
	h.transition(c, h.interviewUC.Retake, "Recording restarted")
}

// Analyze godoc
// @Summary      Analyze recording
// @Description  Sends the recording to the extraction service. Poll GET /session for the outcome.
// @Tags         session
// @Produce      json
// @Success      202  {object}  response.Response{data=usecase.Snapshot}
// @Failure      409  {object}  response.Response
// @Failure      429  {object}  response.Response
// @Router       /session/analyze [post]
func (h *InterviewHandler) Analyze(c *gin.Context) {
	snap, err := h.interviewUC.Analyze(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusAccepted, "Analysis started", snap)
}

// UpdateProfile godoc
// @Summary      Replace the edited profile
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        profile  body      domain.Profile  true  "Edited profile"
// @Success      200      {object}  response.Response{data=usecase.Snapshot}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /session/profile [put]
func (h *InterviewHandler) UpdateProfile(c *gin.Context) {
	var p domain.Profile
	if err := c.ShouldBindJSON(&p); err != nil {
		c.Error(apperror.BadRequest(err.Error()))
		return
	}
	snap, err := h.interviewUC.EditProfile(c.Request.Context(), p)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Profile updated", snap)
}

// Discard godoc
// @Summary      Discard the profile
// @Tags         session
// @Produce      json
// @Success      200  {object}  response.Response{data=usecase.Snapshot}
// @Failure      409  {object}  response.Response
// @Router       /session/discard [post]
func (h *InterviewHandler) Discard(c *gin.Context) {
	h.transition(c, h.interviewUC.Discard, "Profile discarded")
}

// Confirm godoc
// @Summary      Confirm and save
// @Description  Renders the CV, uploads both artifacts and writes the interview record. Poll GET /session for the outcome.
// @Tags         session
// @Produce      json
// @Success      202  {object}  response.Response{data=usecase.Snapshot}
// @Failure      409  {object}  response.Response
// @Failure      429  {object}  response.Response
// @Router       /session/confirm [post]
func (h *InterviewHandler) Confirm(c *gin.Context) {
	snap, err := h.interviewUC.Confirm(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusAccepted, "Saving interview", snap)
}

// Reset godoc
// @Summary      Reset
// @Description  Returns to the landing step with a fresh session.
// @Tags         session
// @Produce      json
// @Success      200  {object}  response.Response{data=usecase.Snapshot}
// @Router       /session/reset [post]
func (h *InterviewHandler) Reset(c *gin.Context) {
	h.transition(c, h.interviewUC.Reset, "Session reset")
}

// ExportInterviews godoc
// @Summary      Export saved interviews
// @Tags         interviews
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        limit  query  int  false  "Maximum rows (default 500)"
// @Success      200
// @Failure      502  {object}  response.Response
// @Router       /interviews/export [get]
func (h *InterviewHandler) ExportInterviews(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	data, filename, err := h.exportUC.ExportInterviews(c.Request.Context(), limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (h *InterviewHandler) transition(c *gin.Context, fn func(context.Context) (usecase.Snapshot, error), message string) {
	snap, err := fn(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, message, snap)
}
