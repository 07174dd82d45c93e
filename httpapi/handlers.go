package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	pdftemplate "github.com/lvillar/pdftemplate"
	"github.com/lvillar/pdftemplate/service"
)

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type userView struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	u, err := s.auth.Register(req.Username, req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, userView{UserID: u.ID, Username: u.Username, Email: u.Email})
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	u, err := s.auth.Authenticate(req.Username, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	token, err := s.auth.IssueToken(u)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"user":         userView{UserID: u.ID, Username: u.Username, Email: u.Email},
	})
}

func (s *Server) me(c *gin.Context) {
	claims := claimsOf(c)
	c.JSON(http.StatusOK, userView{UserID: claims.Subject, Username: claims.Username})
}

func (s *Server) uploadTemplate(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, pdftemplate.Invalidf("file: %v", err))
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, err)
		return
	}
	defer f.Close()

	res, err := s.svc.Upload(c.Request.Context(), fh.Filename, f, owner(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) listTemplates(c *gin.Context) {
	list, err := s.svc.List(c.Request.Context(), owner(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": list})
}

func (s *Server) getTemplate(c *gin.Context) {
	t, err := s.svc.Get(c.Request.Context(), c.Param("id"), owner(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) saveMapping(c *gin.Context) {
	var m service.Mapping
	if err := json.NewDecoder(c.Request.Body).Decode(&m); err != nil {
		fail(c, pdftemplate.Invalidf("mapping: %v", err))
		return
	}
	id := c.Param("id")
	if err := s.svc.SaveMapping(c.Request.Context(), id, owner(c), m); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "template_id": id})
}

func (s *Server) deleteTemplate(c *gin.Context) {
	if err := s.svc.Delete(c.Request.Context(), c.Param("id"), owner(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (s *Server) deleteAllTemplates(c *gin.Context) {
	n, err := s.svc.DeleteAll(c.Request.Context(), owner(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "deleted_count": n})
}

func (s *Server) render(c *gin.Context) {
	var data map[string]any
	if err := json.NewDecoder(c.Request.Body).Decode(&data); err != nil {
		fail(c, pdftemplate.Invalidf("render data: %v", err))
		return
	}
	id := c.Param("id")
	out, err := s.svc.Render(c.Request.Context(), id, owner(c), data)
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Filename))
	c.Header("X-Render-Warnings", strconv.Itoa(len(out.Warnings)))
	c.Data(http.StatusOK, service.ContentType, out.Data)
}

func (s *Server) uploadImage(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, pdftemplate.Invalidf("file: %v", err))
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, err)
		return
	}
	defer f.Close()

	ref, id, err := s.svc.UploadImage(c.Request.Context(), fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"image_path": ref, "image_id": id})
}
