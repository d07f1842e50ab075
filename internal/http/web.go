package http

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"quillpad/internal/auth"
	"quillpad/internal/domain"
	"quillpad/internal/service"
)

const taskNotFoundNotice = "Task not found."

type registerForm struct {
	Username string `form:"username" binding:"required"`
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"password" binding:"required"`
}

type loginForm struct {
	Email    string `form:"email" binding:"required"`
	Password string `form:"password" binding:"required"`
	Remember string `form:"remember"`
}

type taskForm struct {
	Title       string `form:"title" binding:"required"`
	Description string `form:"description"`
}

func (h *Handler) index(c *gin.Context) {
	page, err := h.posts.ListPosts(c.Request.Context(), pageParam(c))
	if err != nil {
		h.internalError(c, "list posts", err)
		return
	}
	h.render(c, http.StatusOK, "index", gin.H{"posts": page})
}

func (h *Handler) search(c *gin.Context) {
	query := c.Query("query")
	results, err := h.posts.SearchPosts(c.Request.Context(), query, pageParam(c))
	if err != nil {
		h.internalError(c, "search posts", err)
		return
	}
	h.render(c, http.StatusOK, "search", gin.H{"title": "Search", "query": query, "results": results})
}

func (h *Handler) showPost(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		h.notFound(c)
		return
	}
	post, err := h.posts.GetPost(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.notFound(c)
			return
		}
		h.internalError(c, "get post", err)
		return
	}
	comments, err := h.posts.ListComments(c.Request.Context(), id)
	if err != nil {
		h.internalError(c, "list comments", err)
		return
	}
	h.render(c, http.StatusOK, "post", gin.H{"title": post.Title, "post": post, "comments": comments})
}

func (h *Handler) addComment(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		h.notFound(c)
		return
	}
	if _, err := h.posts.GetPost(c.Request.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.notFound(c)
			return
		}
		h.internalError(c, "get post", err)
		return
	}
	p, ok := currentPrincipal(c)
	if !ok {
		h.redirectWithFlash(c, "/login?next="+url.QueryEscape(postPath(id)), "You need to be logged in to comment")
		return
	}

	_, err := h.posts.AddComment(c.Request.Context(), p.UserID, id, c.PostForm("comment"))
	switch {
	case err == nil:
		h.redirectWithFlash(c, postPath(id), "Your comment has been added")
	case errors.Is(err, domain.ErrNotFound):
		h.notFound(c)
	case errors.Is(err, domain.ErrValidation):
		h.redirectWithFlash(c, postPath(id), "Comment cannot be empty.")
	default:
		h.internalError(c, "add comment", err)
	}
}

func (h *Handler) registerForm(c *gin.Context) {
	if _, ok := currentPrincipal(c); ok {
		c.Redirect(http.StatusFound, "/")
		return
	}
	h.render(c, http.StatusOK, "register", gin.H{"title": "Register"})
}

func (h *Handler) register(c *gin.Context) {
	if _, ok := currentPrincipal(c); ok {
		c.Redirect(http.StatusFound, "/")
		return
	}
	var form registerForm
	if err := c.ShouldBind(&form); err != nil {
		h.metrics.Registrations.WithLabelValues("invalid").Inc()
		h.redirectWithFlash(c, "/register", "Please provide a username, a valid email and a password.")
		return
	}

	user, err := h.users.Register(c.Request.Context(), form.Username, form.Email, form.Password)
	switch {
	case err == nil:
		h.metrics.Registrations.WithLabelValues("success").Inc()
		h.logger.WithField("user_id", user.ID).Info("user registered")
		h.redirectWithFlash(c, "/login", "Congratulations, you are now a registered user!")
	case errors.Is(err, domain.ErrDuplicateIdentity):
		h.metrics.Registrations.WithLabelValues("duplicate").Inc()
		h.redirectWithFlash(c, "/register", "Username or email already exists.")
	case errors.Is(err, domain.ErrValidation):
		h.metrics.Registrations.WithLabelValues("invalid").Inc()
		h.redirectWithFlash(c, "/register", "Please provide a username, a valid email and a password.")
	default:
		h.internalError(c, "register user", err)
	}
}

func (h *Handler) loginForm(c *gin.Context) {
	if _, ok := currentPrincipal(c); ok {
		c.Redirect(http.StatusFound, "/")
		return
	}
	h.render(c, http.StatusOK, "login", gin.H{"title": "Log in", "next": safeNext(c.Query("next"))})
}

func (h *Handler) login(c *gin.Context) {
	if _, ok := currentPrincipal(c); ok {
		c.Redirect(http.StatusFound, "/")
		return
	}
	failure := "/login"
	if next := safeNext(c.Query("next")); next != "/" {
		failure += "?next=" + url.QueryEscape(next)
	}

	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		h.metrics.Login("web", false)
		h.redirectWithFlash(c, failure, "Invalid email or password")
		return
	}

	signed, err := h.sessions.Login(c.Request.Context(), form.Email, form.Password, form.Remember != "")
	if err != nil {
		h.metrics.Login("web", false)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.logger.WithField("email", form.Email).Warn("web login rejected")
			h.redirectWithFlash(c, failure, "Invalid email or password")
			return
		}
		h.internalError(c, "web login", err)
		return
	}

	h.metrics.Login("web", true)
	h.logger.WithField("user_id", signed.User.ID).Info("web login")
	http.SetCookie(c.Writer, h.sessions.Cookie(signed))
	c.Redirect(http.StatusFound, safeNext(c.Query("next")))
}

func (h *Handler) logout(c *gin.Context) {
	if value, err := c.Cookie(h.sessions.CookieName()); err == nil && value != "" {
		if err := h.sessions.Logout(c.Request.Context(), value); err != nil {
			h.logger.WithError(err).Error("logout")
		}
	}
	http.SetCookie(c.Writer, h.sessions.ClearCookie())
	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) createPostForm(c *gin.Context) {
	h.render(c, http.StatusOK, "create_post", gin.H{"title": "New post", "coversEnabled": h.coversEnabled})
}

func (h *Handler) createPost(c *gin.Context) {
	p, _ := currentPrincipal(c)

	var cover *service.Upload
	if h.coversEnabled {
		if header, err := c.FormFile("cover"); err == nil {
			file, err := header.Open()
			if err != nil {
				h.internalError(c, "open cover upload", err)
				return
			}
			defer file.Close()
			cover = &service.Upload{
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Size:        header.Size,
				Body:        file,
			}
		} else if !errors.Is(err, http.ErrMissingFile) {
			h.redirectWithFlash(c, "/create_post", "Could not read the uploaded image.")
			return
		}
	}

	_, err := h.posts.CreatePost(c.Request.Context(), p.UserID, c.PostForm("title"), c.PostForm("body"), cover)
	switch {
	case err == nil:
		h.redirectWithFlash(c, "/", "Your post has been created!")
	case errors.Is(err, domain.ErrValidation):
		h.redirectWithFlash(c, "/create_post", validationMessage(err))
	default:
		h.internalError(c, "create post", err)
	}
}

func (h *Handler) listTasksPage(c *gin.Context) {
	p, _ := currentPrincipal(c)
	tasks, err := h.tasks.ListTasks(c.Request.Context(), p.UserID)
	if err != nil {
		h.internalError(c, "list tasks", err)
		return
	}
	h.render(c, http.StatusOK, "tasks", gin.H{"title": "Tasks", "tasks": tasks})
}

func (h *Handler) createTaskForm(c *gin.Context) {
	h.render(c, http.StatusOK, "create_task", gin.H{"title": "New task"})
}

func (h *Handler) createTaskPage(c *gin.Context) {
	p, _ := currentPrincipal(c)
	var form taskForm
	if err := c.ShouldBind(&form); err != nil {
		h.redirectWithFlash(c, "/tasks/create", "A task needs a title.")
		return
	}

	_, err := h.tasks.CreateTask(c.Request.Context(), p.UserID, form.Title, form.Description, false)
	switch {
	case err == nil:
		h.redirectWithFlash(c, "/tasks", "Your task has been created!")
	case errors.Is(err, domain.ErrValidation):
		h.redirectWithFlash(c, "/tasks/create", "A task needs a title.")
	default:
		h.internalError(c, "create task", err)
	}
}

func (h *Handler) deleteTaskPage(c *gin.Context) {
	p, _ := currentPrincipal(c)
	id, ok := idParam(c)
	if !ok {
		h.redirectWithFlash(c, "/tasks", taskNotFoundNotice)
		return
	}

	err := h.tasks.DeleteTask(c.Request.Context(), p.UserID, id)
	if err != nil {
		h.taskPageError(c, p, id, "delete task", err)
		return
	}
	h.redirectWithFlash(c, "/tasks", "Task deleted.")
}

func (h *Handler) toggleTaskPage(c *gin.Context) {
	p, _ := currentPrincipal(c)
	id, ok := idParam(c)
	if !ok {
		h.redirectWithFlash(c, "/tasks", taskNotFoundNotice)
		return
	}

	if _, err := h.tasks.ToggleComplete(c.Request.Context(), p.UserID, id); err != nil {
		h.taskPageError(c, p, id, "toggle task", err)
		return
	}
	h.redirectWithFlash(c, "/tasks", "Task status updated.")
}

// taskPageError treats another user's task exactly like a missing one.
func (h *Handler) taskPageError(c *gin.Context, p auth.Principal, id int64, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrForbidden):
		h.denied(p, "task", id)
		h.redirectWithFlash(c, "/tasks", taskNotFoundNotice)
	case errors.Is(err, domain.ErrNotFound):
		h.redirectWithFlash(c, "/tasks", taskNotFoundNotice)
	default:
		h.internalError(c, op, err)
	}
}

func (h *Handler) denied(p auth.Principal, resource string, id int64) {
	h.metrics.AuthzDenials.WithLabelValues(resource).Inc()
	h.logger.WithFields(logrus.Fields{
		"user_id":  p.UserID,
		"via":      string(p.Method),
		"resource": resource,
		"id":       id,
	}).Warn("authorization denied")
}

func (h *Handler) notFound(c *gin.Context) {
	h.render(c, http.StatusNotFound, "not_found", gin.H{"title": "Not found"})
}

func (h *Handler) internalError(c *gin.Context, op string, err error) {
	h.logger.WithError(err).Error(op)
	c.String(http.StatusInternalServerError, "internal server error")
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func pageParam(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func postPath(id int64) string {
	return "/post/" + strconv.FormatInt(id, 10)
}

// safeNext only accepts local absolute paths; anything else becomes "/".
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return "/"
	}
	return next
}

func validationMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": ")
	if msg == "" {
		return "Invalid input."
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}
