package server

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"StemShare/core/stem"
	"StemShare/core/upload"
	"StemShare/logger"
	"StemShare/model"

	"github.com/gorilla/mux"
)

//go:embed web
var webFS embed.FS

var pages = template.Must(template.ParseFS(webFS, "web/*.html"))

func assetHandler() http.Handler {
	sub, err := fs.Sub(webFS, "web/assets")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/assets/", http.FileServer(http.FS(sub)))
}

// renderPage 先渲染到缓冲区，模板出错时不会输出半个页面
func renderPage(w http.ResponseWriter, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		logger.Error("渲染页面失败", logger.String("template", name), logger.ErrorField(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func renderNotFound(w http.ResponseWriter) {
	renderPage(w, http.StatusNotFound, "notfound.html", nil)
}

// uploadSlot 上传页的一个分轨槽位
type uploadSlot struct {
	Stem     string
	Label    string
	Keywords []string
}

type uploadPage struct {
	Slots      []uploadSlot
	Extensions []string
	Untitled   string
}

// UploadPageHandler GET /
func (s *Server) UploadPageHandler(w http.ResponseWriter, r *http.Request) {
	data := uploadPage{
		Extensions: stem.AudioExtensions,
		Untitled:   stem.UntitledTrack,
	}
	for _, t := range model.StemOrder {
		data.Slots = append(data.Slots, uploadSlot{Stem: t.String(), Label: t.Label(), Keywords: stem.Keywords(t)})
	}
	renderPage(w, http.StatusOK, "upload.html", data)
}

type sharePage struct {
	Track      model.TrackResponse
	ShareURL   string
	SocketPath string
}

// SharePageHandler GET /s/{id}
func (s *Server) SharePageHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	track, err := s.tracks.GetByID(r.Context(), id)
	if err != nil {
		logger.Error("查询曲目失败", logger.String("trackId", id), logger.ErrorField(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if track == nil || !track.Shareable() {
		renderNotFound(w)
		return
	}

	renderPage(w, http.StatusOK, "share.html", sharePage{
		Track:      track.ToResponse(),
		ShareURL:   upload.ShareURL(s.requestOrigin(r), track.ID),
		SocketPath: "/ws/player/" + track.ID,
	})
}
