package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// SubjectHeader carries the authenticated identity to proxied services.
const SubjectHeader = "X-Auth-Subject"

// subjectKey is the gin context key holding the authenticated subject.
const subjectKey = "auth.subject"

// RequireToken rejects requests without a valid bearer token before any
// downstream handler runs. On success the subject is stored on the context
// and stamped onto the request for forwarding.
func RequireToken(policy TokenPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		subject, err := Parse(policy, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(subjectKey, subject)
		c.Request.Header.Set(SubjectHeader, subject)
		c.Next()
	}
}

// SubjectFromContext returns the authenticated subject, if any.
func SubjectFromContext(c *gin.Context) string {
	subject, _ := c.Get(subjectKey)
	s, _ := subject.(string)
	return s
}
