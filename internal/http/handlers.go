package httpx

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/stuga-cloud/console/internal/domain"
	"github.com/stuga-cloud/console/internal/service/logs"
	"github.com/stuga-cloud/console/internal/service/member"
	"github.com/stuga-cloud/console/internal/ws"
)

func (r *Router) handleSettings(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, r.settings)
}

func (r *Router) handleListProjects(w http.ResponseWriter, req *http.Request) {
	projects, err := r.projects.ListForUser(req.Context(), principalFrom(req))
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func (r *Router) handleGetProject(w http.ResponseWriter, req *http.Request) {
	view, err := r.projects.Get(req.Context(), principalFrom(req), mux.Vars(req)["project"])
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (r *Router) handleListMembers(w http.ResponseWriter, req *http.Request) {
	members, err := r.members.List(req.Context(), principalFrom(req), mux.Vars(req)["project"])
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": members})
}

func (r *Router) handleAddMember(w http.ResponseWriter, req *http.Request) {
	var payload member.AddInput
	if err := decodeJSON(req, &payload); err != nil {
		r.fail(w, req, err)
		return
	}
	added, err := r.members.Add(req.Context(), principalFrom(req), mux.Vars(req)["project"], payload)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

func (r *Router) handleRemoveMember(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	if err := r.members.Remove(req.Context(), principalFrom(req), vars["project"], vars["memberId"]); err != nil {
		r.fail(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "member removed"})
}

func (r *Router) handleCreateContainer(w http.ResponseWriter, req *http.Request) {
	var body domain.CreateContainerApplicationBody
	if err := decodeJSON(req, &body); err != nil {
		r.fail(w, req, err)
		return
	}
	created, err := r.containers.Create(req.Context(), principalFrom(req), mux.Vars(req)["project"], body)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (r *Router) handleDefaultNamespace(w http.ResponseWriter, req *http.Request) {
	ns, err := r.namespaces.Default(req.Context(), principalFrom(req), mux.Vars(req)["project"])
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, ns)
}

func (r *Router) handleListNamespaces(w http.ResponseWriter, req *http.Request) {
	list, err := r.namespaces.List(req.Context(), principalFrom(req), mux.Vars(req)["project"])
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"namespaces": list})
}

func (r *Router) handleCreateNamespace(w http.ResponseWriter, req *http.Request) {
	var payload struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(req, &payload); err != nil {
		r.fail(w, req, err)
		return
	}
	ns, err := r.namespaces.Create(req.Context(), principalFrom(req), mux.Vars(req)["project"], payload.Name)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, ns)
}

func (r *Router) handleGetNamespace(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	detail, err := r.namespaces.Get(req.Context(), principalFrom(req), vars["project"], vars["namespaceId"])
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (r *Router) handleGetContainer(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	detail, err := r.containers.Get(req.Context(), principalFrom(req), vars["project"], vars["namespaceId"], vars["applicationId"])
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (r *Router) handleDeleteContainer(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	if err := r.containers.Delete(req.Context(), principalFrom(req), vars["project"], vars["namespaceId"], vars["applicationId"]); err != nil {
		r.fail(w, req, err)
		return
	}
	r.logs.Deleted(vars["applicationId"])
	writeJSON(w, http.StatusOK, map[string]string{"message": "application deleted"})
}

func (r *Router) handleContainerLogs(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	raw, err := r.containers.Logs(req.Context(), principalFrom(req), vars["project"], vars["namespaceId"], vars["applicationId"])
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": raw})
}

// handleLogsStream resolves the application before upgrading so failures
// still produce the error envelope.
func (r *Router) handleLogsStream(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	ref := logs.Ref{ProjectID: vars["project"], NamespaceID: vars["namespaceId"], ApplicationID: vars["applicationId"]}
	principal := principalFrom(req)
	initial, err := r.logs.Snapshot(req.Context(), principal, ref)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err, "application_id", ref.ApplicationID)
		return
	}
	client := ws.NewClient(conn, r.logger)
	ctx, cancel := context.WithCancel(req.Context())
	defer cancel()
	go client.Drain(cancel)

	if err := r.logs.Follow(ctx, principal, ref, client, initial); err != nil {
		r.logger.Debug("log stream ended", "error", err, "application_id", ref.ApplicationID)
	}
	client.Close()
}
