package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lvillar/pdftemplate/auth"
)

const claimsKey = "claims"

// accessLog logs one line per request.
func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.Int("bytes", c.Writer.Size()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			s.logger.Error("request", fields...)
		default:
			s.logger.Info("request", fields...)
		}
	}
}

// authenticate attaches the claims of a valid bearer token. Requests without
// a token pass through anonymously; a present but invalid token is rejected.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.auth == nil {
			c.Next()
			return
		}
		h := c.GetHeader("Authorization")
		if h == "" {
			c.Next()
			return
		}
		token, ok := strings.CutPrefix(h, "Bearer ")
		if !ok {
			token, ok = strings.CutPrefix(h, "bearer ")
		}
		if !ok {
			abort(c, http.StatusUnauthorized, "malformed authorization header")
			return
		}
		claims, err := s.auth.ParseToken(strings.TrimSpace(token))
		if err != nil {
			fail(c, err)
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// requireUser rejects anonymous requests.
func (s *Server) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claimsOf(c) == nil {
			abort(c, http.StatusUnauthorized, "not authenticated")
			return
		}
		c.Next()
	}
}

func claimsOf(c *gin.Context) *auth.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

// owner returns the id of the authenticated user, or "".
func owner(c *gin.Context) string {
	if claims := claimsOf(c); claims != nil {
		return claims.Subject
	}
	return ""
}

// rateLimit rejects requests once the shared limiter is exhausted.
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter != nil && !s.limiter.Allow() {
			abort(c, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		c.Next()
	}
}

// limitBody caps the request body at the configured upload size.
func (s *Server) limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.maxUpload > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)
		}
		c.Next()
	}
}
