package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/PauloHFS/goth-blog/internal/db"
	"github.com/PauloHFS/goth-blog/internal/logging"
	"github.com/PauloHFS/goth-blog/internal/middleware"
	"github.com/PauloHFS/goth-blog/internal/policies"
	"github.com/PauloHFS/goth-blog/internal/services"
)

type authorResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type postResponse struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Content    string         `json:"content"`
	ImageUrl   string         `json:"imageUrl,omitempty"`
	Visibility db.Visibility  `json:"visibility"`
	Author     authorResponse `json:"author"`
	CanEdit    bool           `json:"canEdit"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

type postPage struct {
	Items       []postResponse `json:"items"`
	TotalItems  int            `json:"totalItems"`
	TotalPages  int            `json:"totalPages"`
	CurrentPage int            `json:"currentPage"`
	PerPage     int            `json:"perPage"`
	HasNext     bool           `json:"hasNext"`
	HasPrevious bool           `json:"hasPrevious"`
}

func toPostResponse(deps HandlerDeps, requester policies.Requester, p db.Post) postResponse {
	return postResponse{
		ID:         p.ID,
		Title:      p.Title,
		Content:    p.Content,
		ImageUrl:   p.ImageUrl.String,
		Visibility: p.Visibility,
		Author:     authorResponse{ID: p.AuthorID, Username: p.AuthorUsername},
		CanEdit:    deps.Posts.CanEdit(requester, p),
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func toPostPage(deps HandlerDeps, requester policies.Requester, result db.PagedResult[db.Post]) postPage {
	items := make([]postResponse, 0, len(result.Items))
	for _, p := range result.Items {
		items = append(items, toPostResponse(deps, requester, p))
	}
	return postPage{
		Items:       items,
		TotalItems:  result.TotalItems,
		TotalPages:  result.TotalPages(),
		CurrentPage: result.CurrentPage,
		PerPage:     result.PerPage,
		HasNext:     result.HasNext(),
		HasPrevious: result.HasPrevious(),
	}
}

// @Summary Listar posts
// @Description Posts públicos, mais recentes primeiro.
// @Tags posts
// @Produce json
// @Param page query int false "Página (1..)"
// @Param limit query int false "Itens por página (máx. 100)"
// @Success 200 {object} postPage
// @Router /api/posts [get]
func handleListPosts(deps HandlerDeps, w http.ResponseWriter, r *http.Request) error {
	requester := middleware.GetRequester(r.Context())

	result, err := deps.Posts.ListPublic(r.Context(), pagingFrom(r))
	if err != nil {
		return err
	}

	logging.AddToEvent(r.Context(), slog.Int("result_count", len(result.Items)))
	respondJSON(w, http.StatusOK, toPostPage(deps, requester, result))
	return nil
}

// @Summary Meus posts
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param page query int false "Página (1..)"
// @Param limit query int false "Itens por página (máx. 100)"
// @Success 200 {object} postPage
// @Failure 401 {object} errorResponse
// @Router /api/posts/my-posts [get]
func handleMyPosts(deps HandlerDeps, w http.ResponseWriter, r *http.Request) error {
	requester := middleware.GetRequester(r.Context())

	result, err := deps.Posts.ListByAuthor(r.Context(), requester, pagingFrom(r))
	if err != nil {
		return err
	}

	logging.AddToEvent(r.Context(), slog.Int("result_count", len(result.Items)))
	respondJSON(w, http.StatusOK, toPostPage(deps, requester, result))
	return nil
}

// @Summary Criar post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param post body services.CreatePostInput true "Post"
// @Success 201 {object} map[string]any
// @Failure 400 {object} errorResponse
// @Failure 401 {object} errorResponse
// @Router /api/posts [post]
func handleCreatePost(deps HandlerDeps, w http.ResponseWriter, r *http.Request) error {
	requester := middleware.GetRequester(r.Context())
	logging.AddToEvent(r.Context(), slog.String("operation", "create_post"))

	var input services.CreatePostInput
	if err := decodeJSON(w, r, &input); err != nil {
		return err
	}

	post, err := deps.Posts.Create(r.Context(), requester, input)
	if err != nil {
		return err
	}

	logging.AddToEvent(r.Context(), slog.String("outcome", "success"))

	respondJSON(w, http.StatusCreated, map[string]any{
		"message": "Post created successfully",
		"success": true,
		"post":    toPostResponse(deps, requester, post),
	})
	return nil
}

// @Summary Ler post
// @Description Posts privados só são visíveis para o autor.
// @Tags posts
// @Produce json
// @Param id path string true "ID do post"
// @Success 200 {object} postResponse
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /api/posts/{id} [get]
func handleGetPost(deps HandlerDeps, w http.ResponseWriter, r *http.Request) error {
	requester := middleware.GetRequester(r.Context())
	post, err := deps.Posts.Get(r.Context(), requester, r.PathValue("id"))
	if err != nil {
		return err
	}

	respondJSON(w, http.StatusOK, toPostResponse(deps, requester, post))
	return nil
}

// @Summary Atualizar post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do post"
// @Param post body services.UpdatePostInput true "Campos alterados"
// @Success 200 {object} map[string]any
// @Failure 400 {object} errorResponse
// @Failure 401 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /api/posts/{id} [put]
func handleUpdatePost(deps HandlerDeps, w http.ResponseWriter, r *http.Request) error {
	requester := middleware.GetRequester(r.Context())
	id := r.PathValue("id")
	logging.AddToEvent(r.Context(), slog.String("operation", "update_post"))

	var input services.UpdatePostInput
	if err := decodeJSON(w, r, &input); err != nil {
		return err
	}

	post, err := deps.Posts.Update(r.Context(), requester, id, input)
	if err != nil {
		return err
	}

	logging.AddToEvent(r.Context(), slog.String("outcome", "success"))
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Post updated successfully",
		"success": true,
		"post":    toPostResponse(deps, requester, post),
	})
	return nil
}

// @Summary Remover post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID do post"
// @Success 200 {object} map[string]any
// @Failure 401 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /api/posts/{id} [delete]
func handleDeletePost(deps HandlerDeps, w http.ResponseWriter, r *http.Request) error {
	requester := middleware.GetRequester(r.Context())
	id := r.PathValue("id")
	logging.AddToEvent(r.Context(), slog.String("operation", "delete_post"))

	if err := deps.Posts.Delete(r.Context(), requester, id); err != nil {
		return err
	}

	logging.AddToEvent(r.Context(), slog.String("outcome", "success"))
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Post deleted successfully",
		"success": true,
	})
	return nil
}
