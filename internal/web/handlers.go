package web

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vzahanych/vision-portal/internal/auth"
	"github.com/vzahanych/vision-portal/internal/detect"
	"github.com/vzahanych/vision-portal/internal/health"
	"github.com/vzahanych/vision-portal/internal/pipeline"
	"github.com/vzahanych/vision-portal/internal/service"
	"github.com/vzahanych/vision-portal/internal/storage"
)

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(c *gin.Context) {
	if s.healthReg == nil {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "web-server",
		})
		return
	}

	report := s.healthReg.Check(c.Request.Context())
	statusCode := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, report)
}

// handleStatus handles the system status endpoint
func (s *Server) handleStatus(c *gin.Context) {
	uptime := time.Since(s.startTime)

	status := "healthy"
	if s.GetStatus().GetStatus() != service.StatusRunning {
		status = "unhealthy"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         status,
		"uptime":         uptime.String(),
		"uptime_seconds": int64(uptime.Seconds()),
		"version":        s.version,
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}

// credentialsRequest is the body of register and login calls
type credentialsRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// handleRegisterForm tells form-driven clients what to send
func (s *Server) handleRegisterForm(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "POST username, password and confirm_password to create an account",
	})
}

// handleRegister handles account creation
func (s *Server) handleRegister(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	user, err := s.auth.Register(c.Request.Context(), req.Username, req.Password, req.ConfirmPassword)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExists):
			c.JSON(http.StatusConflict, gin.H{"error": "Username already exists"})
		case errors.Is(err, auth.ErrMissingCredentials), errors.Is(err, auth.ErrPasswordMismatch):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			s.LogError("Registration failed", err, "username", req.Username)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		}
		return
	}

	// Storage directories exist from the moment the account does
	if _, _, err := s.layout.UserDirs(user.Username); err != nil {
		s.LogWarn("Failed to create user directories", "username", user.Username, "error", err)
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"message":  "Registration successful! Please login.",
		"username": user.Username,
	})
}

// handleLoginForm tells form-driven clients what to send
func (s *Server) handleLoginForm(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "POST username and password to login",
	})
}

// handleLogin handles credential checks and session issuance
func (s *Server) handleLogin(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	sess, err := s.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
			return
		}
		s.LogError("Login failed", err, "username", req.Username)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	maxAge := int(time.Until(sess.ExpiresAt).Seconds())
	c.SetCookie(auth.SessionCookie, sess.Token, maxAge, "/", "", false, true)

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Login successful",
		"username": sess.Username,
	})
}

// handleLogout invalidates the current session, if any
func (s *Server) handleLogout(c *gin.Context) {
	if token, err := c.Cookie(auth.SessionCookie); err == nil && token != "" {
		s.auth.Logout(token)
	}
	c.SetCookie(auth.SessionCookie, "", -1, "/", "", false, true)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged out",
	})
}

// handleUploadForm reports the upload constraints
func (s *Server) handleUploadForm(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"max_size_bytes":     s.config.Uploads.MaxSizeBytes,
		"allowed_extensions": s.config.Uploads.AllowedExtensions,
	})
}

// handleUpload accepts a multipart upload and stores it under a unique name
func (s *Server) handleUpload(c *gin.Context) {
	username := currentUser(c)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.config.Uploads.MaxSizeBytes)

	header, err := c.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file part in the request"})
		return
	}
	if header.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file selected"})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer file.Close()

	stored, err := s.layout.SaveUpload(username, header.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidFileType):
			c.JSON(http.StatusBadRequest, gin.H{"error": "File type not allowed"})
		case errors.Is(err, storage.ErrEmptyFilename):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filename"})
		default:
			s.LogError("Upload failed", err, "username", username)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save upload"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"filename": stored,
		"message":  "File uploaded successfully",
	})
}

// handleProcess runs detection over a previously uploaded file
func (s *Server) handleProcess(c *gin.Context) {
	username := currentUser(c)
	filename := c.Param("filename")

	result, err := s.processor.Process(c.Request.Context(), username, filename)
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		case errors.Is(err, detect.ErrModelUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Detection model is not available"})
		default:
			s.LogError("Processing failed", err, "username", username, "filename", filename)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Processing failed"})
		}
		return
	}

	resp := gin.H{
		"success": true,
		"message": result.Message,
	}
	if result.NoDetections {
		resp["no_detections"] = true
	} else {
		resp["filename"] = result.Filename
		resp["file_type"] = result.FileType
		resp["detection_count"] = result.DetectionCount
		resp["frame_count"] = result.FrameCount
	}
	if result.Cached {
		resp["cached"] = true
	}

	c.JSON(http.StatusOK, resp)
}

// handleListProcessed lists the user's processed files
func (s *Server) handleListProcessed(c *gin.Context) {
	username := currentUser(c)

	entries, err := s.processor.ListResults(username)
	if err != nil {
		s.LogError("Failed to list results", err, "username", username)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list processed files"})
		return
	}

	files := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		files = append(files, gin.H{
			"name":       e.Name,
			"type":       e.Kind,
			"detections": e.Detections,
			"url":        "/user_files/" + e.Name,
		})
	}

	c.JSON(http.StatusOK, files)
}

// handleClearResults deletes all of the user's uploads and results
func (s *Server) handleClearResults(c *gin.Context) {
	username := currentUser(c)

	if err := s.processor.ClearResults(username); err != nil {
		s.LogError("Failed to clear results", err, "username", username)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to clear results",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "All results cleared",
	})
}

// handleUserFile streams a processed file back to its owner
func (s *Server) handleUserFile(c *gin.Context) {
	username := currentUser(c)
	filename := c.Param("filename")

	path, err := s.layout.OutputPath(username, filename)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}

	c.File(path)
}
