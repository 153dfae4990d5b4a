package respond

import (
	"encoding/json"
	"log"
	"net/http"
)

// Application error codes carried alongside HTTP status codes.
const (
	CODE_INTERNAL_ERROR = iota + 1
	CODE_INVALID_JSON
	CODE_INVALID_QUERY
	CODE_BOOK_NOT_FOUND
	CODE_RESOURCE_NOT_FOUND
	CODE_INVALID_URI
	CODE_POSITION_NOT_FOUND
)

type Error struct {
	Code int    `json:"code"`
	Text string `json:"text,omitempty"`
}

func ErrorWithCode(w http.ResponseWriter, httpCode, appCode int) {
	w.WriteHeader(httpCode)
	JSON(w, Error{Code: appCode})
}

func ErrorWithText(w http.ResponseWriter, httpCode, appCode int, errText string) {
	w.WriteHeader(httpCode)
	JSON(w, Error{Code: appCode, Text: errText})
}

func JSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}
