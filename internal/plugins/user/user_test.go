package userplugin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/esxistate/esxistate/internal/config"
	"github.com/esxistate/esxistate/internal/model"
	"github.com/esxistate/esxistate/internal/vmware"
	stateerrors "github.com/esxistate/esxistate/pkg/errors"
)

type fakeAPI struct {
	hosts []string
	users map[string]vmware.User

	addErr    error
	updateErr error
	removeErr error

	added   []vmware.UserSpec
	updated []vmware.UserSpec
	removed []string
}

func (f *fakeAPI) HostNames(ctx context.Context, names []string) ([]string, error) {
	if len(names) > 0 {
		return names, nil
	}
	return f.hosts, nil
}

func (f *fakeAPI) ListUsers(ctx context.Context) (map[string]vmware.User, error) {
	return f.users, nil
}

func (f *fakeAPI) AddUser(ctx context.Context, host string, spec vmware.UserSpec) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, spec)
	f.users[spec.Name] = vmware.User{Name: spec.Name, Description: spec.Description}
	return nil
}

func (f *fakeAPI) UpdateUser(ctx context.Context, host string, spec vmware.UserSpec) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = append(f.updated, spec)
	f.users[spec.Name] = vmware.User{Name: spec.Name, Description: spec.Description}
	return nil
}

func (f *fakeAPI) RemoveUser(ctx context.Context, host, name string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, name)
	delete(f.users, name)
	return nil
}

func newFake() *fakeAPI {
	return &fakeAPI{hosts: []string{"esx01.lab"}, users: map[string]vmware.User{}}
}

func userStep(ensure, username, password, description string) *config.Step {
	return &config.Step{
		ID:   "user_state",
		Type: "user",
		User: &config.UserStep{Ensure: ensure, Username: username, Password: password, Description: description},
	}
}

func reconcile(t *testing.T, api *fakeAPI, step *config.Step) *model.StepResult {
	t.Helper()

	p := New(api)
	eval, err := p.Evaluate(context.Background(), step)
	require.NoError(t, err)
	if !eval.RequiresAction {
		return &model.StepResult{StepID: step.ID, Status: model.StatusSkipped, Reconciliation: eval.Reconciliation}
	}
	res, _ := p.Apply(context.Background(), eval, step)
	require.NotNil(t, res)
	return res
}

func TestUserPresentCreatesThenUpdatesThenDeletes(t *testing.T) {
	t.Parallel()

	api := newFake()

	// create a new user
	res := reconcile(t, api, userStep("present", "alice", "Secret@123", ""))
	require.Equal(t, model.OutcomeSuccess, res.Reconciliation.Outcome)
	for _, hostChanges := range res.Reconciliation.Changes {
		diff := hostChanges.(map[string]any)["new"].(map[string]any)
		require.Equal(t, "alice", diff["name"])
	}

	// update the description
	res = reconcile(t, api, userStep("present", "alice", "Secret@123", "new desc"))
	require.Equal(t, model.OutcomeSuccess, res.Reconciliation.Outcome)
	for _, hostChanges := range res.Reconciliation.Changes {
		diff := hostChanges.(map[string]any)["new"].(map[string]any)
		require.Equal(t, "alice", diff["name"])
		require.Equal(t, "new desc", diff["description"])
	}

	// remove the user
	res = reconcile(t, api, userStep("absent", "alice", "", ""))
	require.Equal(t, model.OutcomeSuccess, res.Reconciliation.Outcome)
	for _, hostChanges := range res.Reconciliation.Changes {
		require.Equal(t, true, hostChanges.(map[string]any)["alice"])
	}

	// remove a non-existent user: preview-style no-op, not a failure
	res = reconcile(t, api, userStep("absent", "alice", "", ""))
	require.Equal(t, model.OutcomePreview, res.Reconciliation.Outcome)
	require.Empty(t, res.Reconciliation.Changes)
}

func TestUserPresentIsIdempotent(t *testing.T) {
	t.Parallel()

	api := newFake()
	step := userStep("present", "alice", "Secret@123", "lab admin")

	res := reconcile(t, api, step)
	require.Equal(t, model.OutcomeSuccess, res.Reconciliation.Outcome)
	require.NotEmpty(t, res.Reconciliation.Changes)

	res = reconcile(t, api, step)
	require.Equal(t, model.OutcomeSuccess, res.Reconciliation.Outcome)
	require.Empty(t, res.Reconciliation.Changes)
	require.Contains(t, res.Reconciliation.Comment, "already in the desired state")
	require.Empty(t, api.updated, "no mutation on the second reconcile")
}

func TestUserAddErrorPropagatesMessage(t *testing.T) {
	t.Parallel()

	api := newFake()
	api.addErr = errors.New("add error")

	res := reconcile(t, api, userStep("present", "alice", "Secret@123", ""))

	require.Equal(t, model.OutcomeFailed, res.Reconciliation.Outcome)
	require.Empty(t, res.Reconciliation.Changes)
	require.Contains(t, res.Reconciliation.Comment, "add error")
}

func TestUserUpdateErrorPropagatesMessage(t *testing.T) {
	t.Parallel()

	api := newFake()
	api.users["alice"] = vmware.User{Name: "alice"}
	api.updateErr = errors.New("update error")

	res := reconcile(t, api, userStep("present", "alice", "Secret@123", "new desc"))

	require.Equal(t, model.OutcomeFailed, res.Reconciliation.Outcome)
	require.Empty(t, res.Reconciliation.Changes)
	require.Contains(t, res.Reconciliation.Comment, "update error")
}

func TestUserRemoveErrorPropagatesMessage(t *testing.T) {
	t.Parallel()

	api := newFake()
	api.users["alice"] = vmware.User{Name: "alice"}
	api.removeErr = errors.New("remove error")

	res := reconcile(t, api, userStep("absent", "alice", "", ""))

	require.Equal(t, model.OutcomeFailed, res.Reconciliation.Outcome)
	require.Empty(t, res.Reconciliation.Changes)
	require.Contains(t, res.Reconciliation.Comment, "remove error")
}

func TestUserDryRunPreviewDoesNotMutate(t *testing.T) {
	t.Parallel()

	api := newFake()
	p := New(api)

	eval, err := p.Evaluate(context.Background(), userStep("present", "alice", "Secret@123", ""))
	require.NoError(t, err)

	require.True(t, eval.RequiresAction)
	require.Equal(t, model.StatusMissing, eval.CurrentState)
	require.Equal(t, model.OutcomePreview, eval.Reconciliation.Outcome)
	require.Contains(t, eval.Reconciliation.Comment, "will be created on 1 host(s)")
	require.Empty(t, api.added, "evaluate never mutates")
}

func TestUserAbsentMissingDryRunComment(t *testing.T) {
	t.Parallel()

	api := newFake()
	p := New(api)

	eval, err := p.Evaluate(context.Background(), userStep("absent", "ghost", "", ""))
	require.NoError(t, err)

	require.False(t, eval.RequiresAction)
	require.Contains(t, eval.Reconciliation.Comment, "will be deleted on 0 host(s)")
}

func TestUserScopedHosts(t *testing.T) {
	t.Parallel()

	api := newFake()
	api.hosts = []string{"esx01.lab", "esx02.lab"}

	step := userStep("present", "alice", "Secret@123", "")
	step.Hosts = []string{"esx02.lab"}

	res := reconcile(t, api, step)
	require.Len(t, res.Reconciliation.Changes, 1)
	_, ok := res.Reconciliation.Changes["esx02.lab"]
	require.True(t, ok)
}

func TestUserDriftedEvaluationRendersPreview(t *testing.T) {
	t.Parallel()

	api := newFake()
	api.users["alice"] = vmware.User{Name: "alice", Description: "old description"}

	p := New(api)
	eval, err := p.Evaluate(context.Background(), userStep("present", "alice", "Secret@123", "new description"))
	require.NoError(t, err)

	require.True(t, eval.RequiresAction)
	require.Contains(t, eval.Diff, "--- current")
	require.Contains(t, eval.Diff, "old description")
	require.Contains(t, eval.Diff, "new description")
	require.NotContains(t, eval.Diff, "Secret@123")
}

func TestUserRemoveSkipsHostsWhereAlreadyGone(t *testing.T) {
	t.Parallel()

	api := newFake()
	api.users["alice"] = vmware.User{Name: "alice"}
	api.removeErr = stateerrors.NewNotFoundError("user", "alice")

	res := reconcile(t, api, userStep("absent", "alice", "", ""))
	require.Equal(t, model.OutcomeSuccess, res.Reconciliation.Outcome)
	require.Empty(t, res.Reconciliation.Changes)
	require.Empty(t, api.removed)
}
