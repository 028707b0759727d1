package licenseplugin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/esxistate/esxistate/internal/config"
	"github.com/esxistate/esxistate/internal/model"
	"github.com/esxistate/esxistate/internal/vmware"
)

type fakeAPI struct {
	licenses map[string]vmware.License

	addErr    error
	removeErr error
}

func (f *fakeAPI) ListLicenses(ctx context.Context) (map[string]vmware.License, error) {
	return f.licenses, nil
}

func (f *fakeAPI) AddLicense(ctx context.Context, key string, labels map[string]string) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.licenses[key] = vmware.License{Key: key, Name: "VMware vSphere Enterprise Plus"}
	return nil
}

func (f *fakeAPI) RemoveLicense(ctx context.Context, key string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	delete(f.licenses, key)
	return nil
}

func licenseStep(ensure, key string) *config.Step {
	return &config.Step{
		ID:      "license_state",
		Type:    "license",
		License: &config.LicenseStep{Ensure: ensure, Key: key},
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

const testKey = "00000-00000-00000-00000-00000"

func TestLicenseLifecycle(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{licenses: map[string]vmware.License{}}

	// add
	res := reconcile(t, api, licenseStep("present", testKey))
	require.Equal(t, model.OutcomeSuccess, res.Reconciliation.Outcome)
	added := res.Reconciliation.Changes["new"].(map[string]any)
	require.Equal(t, testKey, added["key"])

	// re-run: already registered, no changes
	res = reconcile(t, api, licenseStep("present", testKey))
	require.Equal(t, model.OutcomeSuccess, res.Reconciliation.Outcome)
	require.Empty(t, res.Reconciliation.Changes)

	// remove
	res = reconcile(t, api, licenseStep("absent", testKey))
	require.Equal(t, model.OutcomeSuccess, res.Reconciliation.Outcome)
	old := res.Reconciliation.Changes["old"].(map[string]any)
	require.Equal(t, testKey, old["key"])
	require.Empty(t, api.licenses)

	// remove again: not present, preview-style no-op
	res = reconcile(t, api, licenseStep("absent", testKey))
	require.Equal(t, model.OutcomePreview, res.Reconciliation.Outcome)
	require.Empty(t, res.Reconciliation.Changes)
	require.Contains(t, res.Reconciliation.Comment, "is not present")
}

func TestLicenseMissingEvaluationRendersPreview(t *testing.T) {
	t.Parallel()

	p := New(&fakeAPI{licenses: map[string]vmware.License{}})
	eval, err := p.Evaluate(context.Background(), licenseStep("present", testKey))
	require.NoError(t, err)

	require.True(t, eval.RequiresAction)
	require.Equal(t, model.StatusMissing, eval.CurrentState)
	require.Equal(t, model.OutcomePreview, eval.Reconciliation.Outcome)
	require.Contains(t, eval.Diff, "+++ desired")
	require.Contains(t, eval.Diff, testKey)
}

func TestLicenseRemovalDiffShowsCurrentRegistration(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{licenses: map[string]vmware.License{
		testKey: {Key: testKey, Name: "VMware vSphere Standard", Edition: "vs.standard"},
	}}

	p := New(api)
	eval, err := p.Evaluate(context.Background(), licenseStep("absent", testKey))
	require.NoError(t, err)

	require.True(t, eval.RequiresAction)
	require.Contains(t, eval.Diff, "--- current")
	require.Contains(t, eval.Diff, "vs.standard")
	require.Len(t, api.licenses, 1, "evaluate never mutates")
}

func TestLicenseApplyErrorsPropagate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		api  *fakeAPI
		step *config.Step
		want string
	}{
		{
			name: "add",
			api:  &fakeAPI{licenses: map[string]vmware.License{}, addErr: errors.New("add error")},
			step: licenseStep("present", testKey),
			want: "add error",
		},
		{
			name: "remove",
			api: &fakeAPI{
				licenses:  map[string]vmware.License{testKey: {Key: testKey}},
				removeErr: errors.New("remove error"),
			},
			step: licenseStep("absent", testKey),
			want: "remove error",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			res := reconcile(t, tc.api, tc.step)
			require.Equal(t, model.OutcomeFailed, res.Reconciliation.Outcome)
			require.Empty(t, res.Reconciliation.Changes)
			require.Contains(t, res.Reconciliation.Comment, tc.want)
		})
	}
}
