package server

import (
	"net/http"

	"github.com/foomo/docserver/service/vo"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, s.options.RedirectURL, http.StatusFound)
}

func (s *Server) handleBadge(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, vo.Badge{
		SchemaVersion: 1,
		Label:         "docs",
		Message:       "online",
		Color:         "brightgreen",
	})
}

// docType resolves the {type} path value. Unknown types answer 404.
func docType(w http.ResponseWriter, r *http.Request) (vo.DocType, bool) {
	t, ok := vo.ParseDocType(r.PathValue("type"))
	if !ok {
		sendStatus(w, http.StatusNotFound)
	}
	return t, ok
}

// handleRefresh loads both indices and both recommended item lists in order and
// stops at the first failure.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	version, language := r.PathValue("version"), r.PathValue("language")

	index, err := s.service.GetIndex(ctx, version, language, vo.DocTypeDoc)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	guideIndex, err := s.service.GetIndex(ctx, version, language, vo.DocTypeGuide)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	recommended, err := s.service.GetRecommendedItems(ctx, language, vo.DocTypeDoc)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	guideRecommended, err := s.service.GetRecommendedItems(ctx, language, vo.DocTypeGuide)
	if err != nil {
		s.sendError(w, r, err)
		return
	}

	s.writeJSON(w, vo.Refresh{
		Index:                 index,
		GuideIndex:            guideIndex,
		RecommendedItems:      vo.RecommendedOrPlaceholder(recommended),
		GuideRecommendedItems: vo.RecommendedOrPlaceholder(guideRecommended),
	})
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	t, ok := docType(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	version, language := r.PathValue("version"), r.PathValue("language")
	folder, name := query.Get("folder"), query.Get("name")

	if query.Get("format") == "markdown" {
		page, err := s.service.GetPage(r.Context(), version, language, t, folder, name)
		if err != nil {
			s.sendError(w, r, err)
			return
		}
		s.writeJSON(w, page)
		return
	}

	file, err := s.service.GetFile(r.Context(), version, language, t, folder, name)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.writeJSON(w, file)
}

func (s *Server) handleGetFiles(w http.ResponseWriter, r *http.Request) {
	t, ok := docType(w, r)
	if !ok {
		return
	}
	names, err := s.service.GetFiles(r.Context(), r.PathValue("version"), r.PathValue("language"), t, r.URL.Query().Get("folder"))
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.writeJSON(w, names)
}

func (s *Server) handleGetDefault(w http.ResponseWriter, r *http.Request) {
	t, ok := docType(w, r)
	if !ok {
		return
	}
	file, err := s.service.GetDefaultFile(r.Context(), r.PathValue("version"), r.PathValue("language"), t, r.URL.Query().Get("folder"))
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.writeJSON(w, file)
}

func (s *Server) handleGetIndex(w http.ResponseWriter, r *http.Request) {
	t, ok := docType(w, r)
	if !ok {
		return
	}
	index, err := s.service.GetIndex(r.Context(), r.PathValue("version"), r.PathValue("language"), t)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.writeJSON(w, index)
}

func (s *Server) handleGetRecommendedItems(w http.ResponseWriter, r *http.Request) {
	t, ok := docType(w, r)
	if !ok {
		return
	}
	items, err := s.service.GetRecommendedItems(r.Context(), r.PathValue("language"), t)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.writeJSON(w, vo.RecommendedOrPlaceholder(items))
}

func (s *Server) handleGetCategories(w http.ResponseWriter, r *http.Request) {
	t, ok := docType(w, r)
	if !ok {
		return
	}
	categories, err := s.service.GetCategories(r.Context(), r.PathValue("version"), r.PathValue("language"), t)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.writeJSON(w, categories)
}
