package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"StemShare/core/stem"
	"StemShare/core/upload"
	"StemShare/logger"
	"StemShare/model"

	"github.com/gorilla/mux"
)

const (
	// 表单中未分类文件的字段名
	filesField = "files"
	titleField = "title"

	multipartMemory = 32 << 20
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("写入响应失败", logger.ErrorField(err))
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// requestOrigin 配置了 PUBLIC_ORIGIN 时直接使用，否则由请求推断
func (s *Server) requestOrigin(r *http.Request) string {
	if s.cfg.PublicOrigin != "" {
		return s.cfg.PublicOrigin
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	host := r.Host
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		host = fwd
	}
	return scheme + "://" + host
}

// progressEvent 上传进度流中的一行
type progressEvent struct {
	Progress float64 `json:"progress"`
	TrackID  string  `json:"trackId,omitempty"`
	ShareURL string  `json:"shareUrl,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// UploadHandler POST /api/tracks。
// 分轨文件可以放在以分轨类型命名的字段里，也可以放在 files 字段里由文件名自动识别。
// 校验通过后以 NDJSON 流返回进度。
func (s *Server) UploadHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "Upload is too large.")
			return
		}
		writeJSONError(w, http.StatusBadRequest, "Invalid upload form.")
		return
	}
	defer r.MultipartForm.RemoveAll()

	var draft upload.Draft
	for _, t := range model.StemOrder {
		if fhs := r.MultipartForm.File[t.String()]; len(fhs) > 0 {
			draft.SetStem(t, upload.FromMultipart(fhs[0]))
		}
	}
	if fhs := r.MultipartForm.File[filesField]; len(fhs) > 0 {
		files := make([]upload.File, 0, len(fhs))
		for _, fh := range fhs {
			files = append(files, upload.FromMultipart(fh))
		}
		draft.AddFiles(files)
	}

	// 曲名以表单为准，文件名推断只在页面上作为默认值
	title := r.FormValue(titleField)
	if err := upload.Validate(title, draft.Stems); err != nil {
		writeJSONError(w, http.StatusBadRequest, upload.Message(err))
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	flusher, _ := w.(http.Flusher)
	send := func(ev progressEvent) {
		if err := enc.Encode(ev); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	result, err := s.uploader.Submit(r.Context(), upload.SubmitRequest{
		Origin: s.requestOrigin(r),
		Title:  title,
		Stems:  draft.Stems,
	}, func(p float64) {
		// 100 和结果一起发送
		if p < 100 {
			send(progressEvent{Progress: p})
		}
	})
	if err != nil {
		send(progressEvent{Error: upload.Message(err)})
		return
	}
	send(progressEvent{Progress: 100, TrackID: result.TrackID, ShareURL: result.ShareURL})
}

// classifyRequest POST /api/classify 请求体。
// 页面发送 files（文件名 + 浏览器给出的 MIME 类型）；只有文件名时也可以用 filenames。
type classifyRequest struct {
	Files     []classifyInput `json:"files"`
	Filenames []string        `json:"filenames"`
}

type classifyInput struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// classifiedFile 单个文件的识别结果
type classifiedFile struct {
	Filename string          `json:"filename"`
	Audio    bool            `json:"audio"`
	Stem     *model.StemType `json:"stem"`
	// Placed 按"同类型第一个文件胜出"规则是否会被放入槽位
	Placed bool `json:"placed"`
}

type classifyResponse struct {
	Files []classifiedFile `json:"files"`
	Title string           `json:"title"`
}

// ClassifyHandler 根据文件名和 MIME 类型识别分轨类型并给出曲名建议，上传页选择文件后调用
func (s *Server) ClassifyHandler(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	inputs := req.Files
	for _, name := range req.Filenames {
		inputs = append(inputs, classifyInput{Name: name})
	}

	// 逐个加入，与批量加入的放置结果一致，同时能知道每个文件是否被放入
	var draft upload.Draft
	resp := classifyResponse{Files: make([]classifiedFile, 0, len(inputs))}
	for _, in := range inputs {
		cf := classifiedFile{Filename: in.Name, Audio: stem.IsAudioFile(in.Name, in.Type)}
		if t, ok := stem.Classify(in.Name); ok && cf.Audio {
			cf.Stem = &t
			cf.Placed = len(draft.AddFiles([]upload.File{{Name: in.Name, ContentType: in.Type}})) > 0
		}
		resp.Files = append(resp.Files, cf)
	}
	resp.Title = draft.Title
	writeJSON(w, http.StatusOK, resp)
}

// GetTrackHandler GET /api/tracks/{id}
func (s *Server) GetTrackHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(mux.Vars(r)["id"])
	track, err := s.tracks.GetByID(r.Context(), id)
	if err != nil {
		logger.Error("查询曲目失败", logger.String("trackId", id), logger.ErrorField(err))
		writeJSONError(w, http.StatusInternalServerError, "Failed to load track.")
		return
	}
	if track == nil || !track.Shareable() {
		writeJSONError(w, http.StatusNotFound, "Track Not Found")
		return
	}
	writeJSON(w, http.StatusOK, track.ToResponse())
}

// HealthHandler GET /api/health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": s.hub.Count(""),
	})
}
