package server

import (
	"errors"
	"mime"
	"net/http"
	"path"
	"strings"

	"StemShare/logger"
	"StemShare/storage"

	"github.com/gorilla/mux"
)

// StemFileHandler GET /stems/{trackId}/{file}：从对象存储读取分轨文件，支持 Range 请求
func (s *Server) StemFileHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	trackID, file := vars["trackId"], vars["file"]
	if trackID == "" || file == "" || strings.Contains(file, "..") {
		http.NotFound(w, r)
		return
	}
	objectPath := trackID + "/" + file

	obj, err := s.store.Open(r.Context(), objectPath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			http.NotFound(w, r)
			return
		}
		logger.Error("读取分轨文件失败", logger.String("path", objectPath), logger.ErrorField(err))
		http.Error(w, "Failed to read stem", http.StatusBadGateway)
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Type", detectContentType(file, obj.ContentType))
	w.Header().Set("Accept-Ranges", "bytes")
	// 对象写入后不再修改
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	if obj.ETag != "" {
		w.Header().Set("ETag", `"`+strings.Trim(obj.ETag, `"`)+`"`)
	}

	http.ServeContent(w, r, file, obj.LastModified, obj.Body)
}

// detectContentType 优先使用上传时记录的类型，否则按扩展名推断
func detectContentType(file, stored string) string {
	if stored != "" && stored != "application/octet-stream" {
		return stored
	}
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(file))); ct != "" {
		return ct
	}
	switch strings.ToLower(path.Ext(file)) {
	case ".m4a":
		return "audio/mp4"
	case ".flac":
		return "audio/flac"
	case ".aiff":
		return "audio/aiff"
	case ".ogg":
		return "audio/ogg"
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	}
	return "application/octet-stream"
}
