package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"feedboard/domain"
)

type postsResponse struct {
	Message    string        `json:"message"`
	Posts      []domain.Post `json:"posts"`
	TotalItems int           `json:"totalItems"`
}

type postResponse struct {
	Message string       `json:"message"`
	Post    *domain.Post `json:"post"`
}

// GetPosts handles GET /feed/posts?page=N.
func (h *Handler) GetPosts(c echo.Context) error {
	page, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil || page < 1 {
		page = 1
	}

	posts, total, err := h.Feed.Posts(c.Request().Context(), page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, postsResponse{
		Message:    "Fetched posts",
		Posts:      posts,
		TotalItems: total,
	})
}

// GetPost handles GET /feed/posts/:id.
func (h *Handler) GetPost(c echo.Context) error {
	post, err := h.Feed.Post(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, postResponse{Message: "Fetched post", Post: post})
}

// CreatePost handles POST /feed/posts (multipart with an image file).
func (h *Handler) CreatePost(c echo.Context) error {
	fh, err := c.FormFile("image")
	if err != nil {
		return domain.NewValidationError("No image provided",
			domain.FieldError{Param: "image", Msg: "an image file is required"})
	}
	imageURL, err := h.Images.Save(fh)
	if err != nil {
		return err
	}

	post, err := h.Feed.Create(c.Request().Context(), userID(c),
		c.FormValue("title"), c.FormValue("content"), imageURL)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, postResponse{Message: "Post successfully created", Post: post})
}

// UpdatePost handles PUT /feed/posts/:id. The body is either multipart
// (image file optional, "image" field carrying the existing URL
// otherwise) or plain JSON with the existing image URL.
func (h *Handler) UpdatePost(c echo.Context) error {
	var title, content, newImageURL, keptImageURL string

	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		title = c.FormValue("title")
		content = c.FormValue("content")
		keptImageURL = c.FormValue("image")
		if fh, err := c.FormFile("image"); err == nil {
			url, err := h.Images.Save(fh)
			if err != nil {
				return err
			}
			newImageURL = url
		}
	} else {
		var body struct {
			Title   string `json:"title"`
			Content string `json:"content"`
			Image   string `json:"image"`
		}
		if err := c.Bind(&body); err != nil {
			return err
		}
		title, content, keptImageURL = body.Title, body.Content, body.Image
	}

	if newImageURL == "" && keptImageURL == "" {
		return domain.NewValidationError("No file selected",
			domain.FieldError{Param: "image", Msg: "an image is required"})
	}

	post, err := h.Feed.Update(c.Request().Context(), c.Param("id"), userID(c),
		title, content, newImageURL)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, postResponse{Message: "Post successfully updated", Post: post})
}

// DeletePost handles DELETE /feed/posts/:id.
func (h *Handler) DeletePost(c echo.Context) error {
	err := h.Feed.Delete(c.Request().Context(), c.Param("id"), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Post deleted"})
}
