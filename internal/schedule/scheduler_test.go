package schedule

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	batchv1 "k8s.io/api/batch/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/giantswarm/llm-fleet/internal/fleet"
)

func testWindow() Window {
	return Window{
		StartExpr: "0 8 * * 1-5",
		StopExpr:  "0 20 * * *",
	}
}

func testFleet(names ...string) fleet.ResolvedFleet {
	f := fleet.ResolvedFleet{}
	for _, n := range names {
		f.Endpoints = append(f.Endpoints, fleet.ResolvedEndpoint{
			Name:         n,
			ResourceName: strings.ToLower(n),
		})
	}
	return f
}

func TestWindowValidate(t *testing.T) {
	require.NoError(t, testWindow().Validate())

	assert.Error(t, Window{StartExpr: "not-cron", StopExpr: "0 20 * * *"}.Validate())
	assert.Error(t, Window{StartExpr: "0 8 * * 1-5", StopExpr: ""}.Validate())
	assert.Error(t, Window{StartExpr: "0 8 * * 1-5", StopExpr: "61 * * * *"}.Validate())
}

func TestAttachEmptyFleetIsNoOp(t *testing.T) {
	client := fake.NewSimpleClientset()
	s := NewScheduler(client, "test-namespace", "")

	bindings, err := s.Attach(context.Background(), fleet.ResolvedFleet{}, testWindow())
	require.NoError(t, err)
	assert.Empty(t, bindings)

	// No execution role is created for an empty fleet.
	_, err = client.CoreV1().ServiceAccounts("test-namespace").Get(
		context.Background(), RoleName, metav1.GetOptions{})
	assert.Error(t, err)
}

func TestAttachCreatesTwoTriggersPerEndpoint(t *testing.T) {
	client := fake.NewSimpleClientset()
	s := NewScheduler(client, "test-namespace", "")

	f := testFleet("Model-A", "Model-B", "Model-C")
	bindings, err := s.Attach(context.Background(), f, testWindow())
	require.NoError(t, err)
	require.Len(t, bindings, 3)

	cronJobs, err := client.BatchV1().CronJobs("test-namespace").List(
		context.Background(), metav1.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, cronJobs.Items, 2*len(f.Endpoints))

	for _, b := range bindings {
		assert.NoError(t, b.Err)
		assert.Equal(t, RoleName, b.Role)
		assert.NotEmpty(t, b.StartTrigger)
		assert.NotEmpty(t, b.StopTrigger)
	}
}

func TestAttachCreatesSharedRoleOnce(t *testing.T) {
	client := fake.NewSimpleClientset()
	s := NewScheduler(client, "test-namespace", "")

	_, err := s.Attach(context.Background(), testFleet("Model-A", "Model-B"), testWindow())
	require.NoError(t, err)

	sas, err := client.CoreV1().ServiceAccounts("test-namespace").List(
		context.Background(), metav1.ListOptions{})
	require.NoError(t, err)
	require.Len(t, sas.Items, 1)
	assert.Equal(t, RoleName, sas.Items[0].Name)

	roles, err := client.RbacV1().Roles("test-namespace").List(
		context.Background(), metav1.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, roles.Items, 1)
}

func TestAttachTriggerSpec(t *testing.T) {
	client := fake.NewSimpleClientset()
	s := NewScheduler(client, "test-namespace", "registry.example.com/llm-fleet:v1")

	_, err := s.Attach(context.Background(), testFleet("Model-A"), testWindow())
	require.NoError(t, err)

	start, err := client.BatchV1().CronJobs("test-namespace").Get(
		context.Background(), "model-a-start", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "0 8 * * 1-5", start.Spec.Schedule)

	pod := start.Spec.JobTemplate.Spec.Template.Spec
	assert.Equal(t, RoleName, pod.ServiceAccountName)
	require.Len(t, pod.Containers, 1)
	assert.Equal(t, "registry.example.com/llm-fleet:v1", pod.Containers[0].Image)
	assert.Equal(t, []string{"start", "model-a", "-n", "test-namespace", "--in-cluster"},
		pod.Containers[0].Args)

	stop, err := client.BatchV1().CronJobs("test-namespace").Get(
		context.Background(), "model-a-stop", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "0 20 * * *", stop.Spec.Schedule)
	assert.Equal(t, []string{"stop", "model-a", "-n", "test-namespace", "--in-cluster"},
		stop.Spec.JobTemplate.Spec.Template.Spec.Containers[0].Args)
}

// Trigger jobs must act on the namespace the fleet lives in, not the CLI's
// default, or firings against a custom namespace silently miss the endpoint.
func TestAttachTriggerTargetsFleetNamespace(t *testing.T) {
	client := fake.NewSimpleClientset()
	s := NewScheduler(client, "prod-llm", "")

	_, err := s.Attach(context.Background(), testFleet("Model-A"), testWindow())
	require.NoError(t, err)

	start, err := client.BatchV1().CronJobs("prod-llm").Get(
		context.Background(), "model-a-start", metav1.GetOptions{})
	require.NoError(t, err)

	args := start.Spec.JobTemplate.Spec.Template.Spec.Containers[0].Args
	assert.Equal(t, []string{"start", "model-a", "-n", "prod-llm", "--in-cluster"}, args)
}

// Re-applying the same fleet and window converges: same trigger set, updated
// in place rather than duplicated.
func TestAttachIdempotent(t *testing.T) {
	client := fake.NewSimpleClientset()
	s := NewScheduler(client, "test-namespace", "")

	f := testFleet("Model-A")
	_, err := s.Attach(context.Background(), f, testWindow())
	require.NoError(t, err)

	updated := Window{StartExpr: "30 7 * * 1-5", StopExpr: "0 20 * * *"}
	bindings, err := s.Attach(context.Background(), f, updated)
	require.NoError(t, err)
	require.Len(t, bindings, 1)
	assert.NoError(t, bindings[0].Err)

	cronJobs, err := client.BatchV1().CronJobs("test-namespace").List(
		context.Background(), metav1.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, cronJobs.Items, 2)

	start, err := client.BatchV1().CronJobs("test-namespace").Get(
		context.Background(), "model-a-start", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "30 7 * * 1-5", start.Spec.Schedule)
}

func TestAttachInvalidWindowFailsBeforeSideEffects(t *testing.T) {
	client := fake.NewSimpleClientset()
	s := NewScheduler(client, "test-namespace", "")

	_, err := s.Attach(context.Background(), testFleet("Model-A"),
		Window{StartExpr: "bogus", StopExpr: "0 20 * * *"})
	require.Error(t, err)

	assert.Empty(t, client.Actions())
}

// Failing to create the shared execution role aborts the whole scheduling
// step before any trigger exists.
func TestAttachRoleFailureIsFatal(t *testing.T) {
	client := fake.NewSimpleClientset()
	client.PrependReactor("create", "serviceaccounts",
		func(k8stesting.Action) (bool, runtime.Object, error) {
			return true, nil, errors.New("rbac webhook rejected")
		})
	s := NewScheduler(client, "test-namespace", "")

	bindings, err := s.Attach(context.Background(), testFleet("Model-A", "Model-B"), testWindow())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheduler role")
	assert.Empty(t, bindings)

	cronJobs, err := client.BatchV1().CronJobs("test-namespace").List(
		context.Background(), metav1.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, cronJobs.Items)
}

// A trigger failure for one endpoint is recorded in its binding; the other
// endpoints still get theirs.
func TestAttachEndpointFailureRecordedInBinding(t *testing.T) {
	client := fake.NewSimpleClientset()
	client.PrependReactor("create", "cronjobs",
		func(action k8stesting.Action) (bool, runtime.Object, error) {
			cj := action.(k8stesting.CreateAction).GetObject().(*batchv1.CronJob)
			if cj.Name == "model-b-start" {
				return true, nil, errors.New("quota exceeded")
			}
			return false, nil, nil
		})
	s := NewScheduler(client, "test-namespace", "")

	bindings, err := s.Attach(context.Background(),
		testFleet("Model-A", "Model-B", "Model-C"), testWindow())
	require.NoError(t, err)
	require.Len(t, bindings, 3)

	assert.NoError(t, bindings[0].Err)
	require.Error(t, bindings[1].Err)
	assert.Contains(t, bindings[1].Err.Error(), "quota exceeded")
	assert.Empty(t, bindings[1].StartTrigger)
	assert.NoError(t, bindings[2].Err)

	for _, name := range []string{"model-a-start", "model-a-stop", "model-c-start", "model-c-stop"} {
		_, err := client.BatchV1().CronJobs("test-namespace").Get(
			context.Background(), name, metav1.GetOptions{})
		assert.NoError(t, err, "trigger %s", name)
	}
}

func TestDetachRemovesTriggers(t *testing.T) {
	client := fake.NewSimpleClientset()
	s := NewScheduler(client, "test-namespace", "")

	_, err := s.Attach(context.Background(), testFleet("Model-A"), testWindow())
	require.NoError(t, err)

	require.NoError(t, s.Detach(context.Background(), "model-a"))

	cronJobs, err := client.BatchV1().CronJobs("test-namespace").List(
		context.Background(), metav1.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, cronJobs.Items)
}

func TestDetachMissingTriggersIsNoError(t *testing.T) {
	client := fake.NewSimpleClientset()
	s := NewScheduler(client, "test-namespace", "")

	assert.NoError(t, s.Detach(context.Background(), "never-existed"))
}

func TestTriggerNameLengthLimit(t *testing.T) {
	long := strings.Repeat("a", 70)

	name := triggerName(long, "start")
	assert.LessOrEqual(t, len(name), 63)
	assert.True(t, strings.HasSuffix(name, "-start"))
}

// Distinct endpoint names that only differ past the truncation point must
// still yield distinct trigger names.
func TestTriggerNameNoCollisionAfterTruncation(t *testing.T) {
	prefix := strings.Repeat("a", 60)

	first := triggerName(prefix+"-one", "start")
	second := triggerName(prefix+"-two", "start")

	assert.NotEqual(t, first, second)
	assert.LessOrEqual(t, len(first), 63)
	assert.LessOrEqual(t, len(second), 63)
}

func TestTriggerNameShortNameUnchanged(t *testing.T) {
	assert.Equal(t, "model-a-start", triggerName("model-a", "start"))
	assert.Equal(t, "model-a-stop", triggerName("model-a", "stop"))
}
