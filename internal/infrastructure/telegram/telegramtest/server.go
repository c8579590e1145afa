// Package telegramtest provides an in-process Bot API double for tests.
package telegramtest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Call is one recorded Bot API request.
type Call struct {
	Method string
	Params map[string]string
	Files  map[string][]byte
}

// Failure is returned for matching method/chat pairs instead of a success.
type Failure struct {
	Code        int
	Description string
	// Times limits how often the failure fires; 0 means always.
	Times int
}

// Server is a fake Bot API answering getMe and the send/edit/delete family.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	calls    []Call
	nextID   int
	failures map[string]*Failure
	files    map[string][]byte
}

// NewServer starts the double and closes it on cleanup.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{nextID: 100, failures: map[string]*Failure{}, files: map[string][]byte{}}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Endpoint is the format string accepted by tgbotapi.NewBotAPIWithClient.
func (s *Server) Endpoint() string {
	return s.URL + "/bot%s/%s"
}

// FileEndpoint is the format string for file downloads.
func (s *Server) FileEndpoint() string {
	return s.URL + "/file/bot%s/%s"
}

// AddFile registers downloadable content for getFile.
func (s *Server) AddFile(fileID string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[fileID] = data
}

// Fail makes method calls to chatID fail; chatID 0 matches any chat.
func (s *Server) Fail(method string, chatID int64, f Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[failureKey(method, chatID)] = &f
}

// Calls returns recorded calls for method, or all calls when method is empty.
func (s *Server) Calls(method string) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Call
	for _, c := range s.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// takeFailure must be called with mu held.
func (s *Server) takeFailure(method string, chatID int64) *Failure {
	key := failureKey(method, chatID)
	f, ok := s.failures[key]
	if !ok {
		key = failureKey(method, 0)
		if f, ok = s.failures[key]; !ok {
			return nil
		}
	}
	out := *f
	if f.Times > 0 {
		f.Times--
		if f.Times == 0 {
			delete(s.failures, key)
		}
	}
	return &out
}

func failureKey(method string, chatID int64) string {
	return method + "/" + strconv.FormatInt(chatID, 10)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/file/") {
		s.serveFile(w, r)
		return
	}

	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	call := Call{Method: method, Params: map[string]string{}, Files: map[string][]byte{}}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(32 << 20); err == nil {
			for k, v := range r.MultipartForm.Value {
				call.Params[k] = v[0]
			}
			for k, headers := range r.MultipartForm.File {
				f, err := headers[0].Open()
				if err != nil {
					continue
				}
				data, _ := io.ReadAll(f)
				_ = f.Close()
				call.Files[k] = data
			}
		}
	} else if err := r.ParseForm(); err == nil {
		for k, v := range r.PostForm {
			call.Params[k] = v[0]
		}
	}

	chatID, _ := strconv.ParseInt(call.Params["chat_id"], 10, 64)

	s.mu.Lock()
	s.calls = append(s.calls, call)
	failure := s.takeFailure(method, chatID)
	s.nextID++
	id := s.nextID
	s.mu.Unlock()

	if failure != nil {
		writeJSON(w, map[string]any{"ok": false, "error_code": failure.Code, "description": failure.Description})
		return
	}

	switch method {
	case "getMe":
		writeOK(w, map[string]any{"id": 1, "is_bot": true, "first_name": "feedback", "username": "feedback_bot"})
	case "sendMediaGroup":
		var media []map[string]any
		_ = json.Unmarshal([]byte(call.Params["media"]), &media)
		msgs := make([]map[string]any, 0, len(media))
		for i := range media {
			msgs = append(msgs, message(id*10+i, chatID, ""))
		}
		writeOK(w, msgs)
	case "deleteMessage", "answerCallbackQuery", "setMyCommands":
		writeOK(w, true)
	case "getFile":
		writeOK(w, map[string]any{"file_id": call.Params["file_id"], "file_path": "voice/" + call.Params["file_id"] + ".ogg"})
	case "getUpdates":
		writeOK(w, []any{})
	default:
		writeOK(w, message(id, chatID, call.Params["text"]))
	}
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	fileID := strings.TrimSuffix(name, ".ogg")
	s.mu.Lock()
	data, ok := s.files[fileID]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	_, _ = w.Write(data)
}

func message(id int, chatID int64, text string) map[string]any {
	return map[string]any{
		"message_id": id,
		"date":       0,
		"chat":       map[string]any{"id": chatID, "type": chatType(chatID)},
		"text":       text,
	}
}

func chatType(chatID int64) string {
	if chatID < 0 {
		return "channel"
	}
	return "private"
}

func writeOK(w http.ResponseWriter, result any) {
	writeJSON(w, map[string]any{"ok": true, "result": result})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, fmt.Sprint(err), http.StatusInternalServerError)
	}
}
