package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	bodyContextKey = "parsed_body"
	// maxFormDepth bounds how many bracket segments a form key may nest.
	maxFormDepth = 5
)

var errEntityTooLarge = errors.New("request entity too large")

// jsonBodyParser decodes application/json bodies into the request context.
// Only objects and arrays are accepted.
func jsonBodyParser(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !hasMediaType(c.Request, "application/json") {
			c.Next()
			return
		}
		raw, err := readLimited(c.Request, limit)
		if err != nil {
			abortWithBodyError(c, err)
			return
		}
		if len(bytes.TrimSpace(raw)) == 0 {
			c.Set(bodyContextKey, map[string]any{})
			c.Next()
			return
		}
		var parsed any
		if err := json.Unmarshal(raw, &parsed); err != nil {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_json", errMessage(err), err))
			return
		}
		switch parsed.(type) {
		case map[string]any, []any:
		default:
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_json", "json body must be an object or array", nil))
			return
		}
		c.Set(bodyContextKey, parsed)
		c.Next()
	}
}

// urlencodedBodyParser decodes application/x-www-form-urlencoded bodies. With
// extended set, bracketed keys build nested objects: a[b][c]=1 and list[]=x.
func urlencodedBodyParser(limit int64, extended bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !hasMediaType(c.Request, "application/x-www-form-urlencoded") {
			c.Next()
			return
		}
		raw, err := readLimited(c.Request, limit)
		if err != nil {
			abortWithBodyError(c, err)
			return
		}
		values, err := url.ParseQuery(string(raw))
		if err != nil {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_form", errMessage(err), err))
			return
		}
		if extended {
			c.Set(bodyContextKey, parseExtendedForm(values))
		} else {
			c.Set(bodyContextKey, flattenForm(values))
		}
		c.Next()
	}
}

// parsedBody returns the body decoded by the parsers, or nil when none ran.
func parsedBody(c *gin.Context) any {
	v, _ := c.Get(bodyContextKey)
	return v
}

func hasMediaType(r *http.Request, want string) bool {
	if r.Body == nil || r.Body == http.NoBody {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	if mediaType == want {
		return true
	}
	return want == "application/json" && strings.HasSuffix(mediaType, "+json")
}

// readLimited drains the body and puts a copy back for later binders.
func readLimited(r *http.Request, limit int64) ([]byte, error) {
	defer r.Body.Close()
	data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, errEntityTooLarge
	}
	r.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}

func abortWithBodyError(c *gin.Context, err error) {
	if errors.Is(err, errEntityTooLarge) {
		abortWithError(c, NewHTTPError(http.StatusRequestEntityTooLarge, "entity_too_large", err.Error(), err))
		return
	}
	abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_body", errMessage(err), err))
}

func flattenForm(values url.Values) map[string]any {
	out := make(map[string]any, len(values))
	for key, vals := range values {
		if len(vals) == 1 {
			out[key] = vals[0]
			continue
		}
		list := make([]any, len(vals))
		for i, v := range vals {
			list[i] = v
		}
		out[key] = list
	}
	return out
}

func parseExtendedForm(values url.Values) map[string]any {
	root := make(map[string]any, len(values))
	for key, vals := range values {
		path := splitFormKey(key)
		for _, v := range vals {
			assignFormValue(root, path, v)
		}
	}
	return root
}

// splitFormKey turns "a[b][]" into ["a", "b", ""]. Segments beyond
// maxFormDepth are kept as one literal segment.
func splitFormKey(key string) []string {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return []string{key}
	}
	path := []string{key[:open]}
	rest := key[open:]
	for rest != "" && len(path) <= maxFormDepth {
		if rest[0] != '[' {
			break
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			break
		}
		path = append(path, rest[1:end])
		rest = rest[end+1:]
	}
	if rest != "" {
		path = append(path, rest)
	}
	return path
}

func assignFormValue(container map[string]any, path []string, value string) {
	key := path[0]
	if len(path) == 1 || (len(path) == 2 && path[1] == "") {
		appendFormValue(container, key, value, len(path) == 2)
		return
	}
	child, ok := container[key].(map[string]any)
	if !ok {
		if container[key] != nil {
			// a scalar already owns this key
			return
		}
		child = make(map[string]any)
		container[key] = child
	}
	assignFormValue(child, path[1:], value)
}

func appendFormValue(container map[string]any, key, value string, forceList bool) {
	switch existing := container[key].(type) {
	case nil:
		if forceList {
			container[key] = []any{value}
		} else {
			container[key] = value
		}
	case []any:
		container[key] = append(existing, value)
	case string:
		container[key] = []any{existing, value}
	}
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
