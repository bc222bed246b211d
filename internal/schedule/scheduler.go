// Package schedule installs the recurring start/stop triggers that bound the
// cost of an endpoint fleet. Triggers are CronJobs invoking the llm-fleet CLI
// against one endpoint each; the state transitions themselves happen
// asynchronously in the cluster, outside this package.
package schedule

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/giantswarm/llm-fleet/internal/fleet"
)

const (
	// RoleName is the shared execution identity all schedule triggers run as.
	RoleName = "llm-fleet-scheduler"

	managedBy = "llm-fleet"

	// DefaultRunnerImage is the image the trigger jobs run. It carries the
	// llm-fleet CLI.
	DefaultRunnerImage = "ghcr.io/giantswarm/llm-fleet:latest"
)

var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// Window pairs the cron expressions for scaling the fleet up and down.
type Window struct {
	StartExpr string
	StopExpr  string
}

// Validate checks both cron expressions before any side effect is attempted.
func (w Window) Validate() error {
	if _, err := cronParser.Parse(w.StartExpr); err != nil {
		return fmt.Errorf("invalid start schedule %q: %w", w.StartExpr, err)
	}
	if _, err := cronParser.Parse(w.StopExpr); err != nil {
		return fmt.Errorf("invalid stop schedule %q: %w", w.StopExpr, err)
	}
	return nil
}

// Binding records the triggers installed for one endpoint. Err is set when
// trigger creation failed for that endpoint; other endpoints still proceed.
type Binding struct {
	EndpointName string `json:"endpoint_name"`
	StartTrigger string `json:"start_trigger,omitempty"`
	StopTrigger  string `json:"stop_trigger,omitempty"`
	Role         string `json:"role"`
	Err          error  `json:"-"`
}

// Scheduler installs start/stop triggers for resolved endpoints.
type Scheduler struct {
	client      kubernetes.Interface
	namespace   string
	runnerImage string
}

// NewScheduler creates a scheduler for the given namespace. runnerImage may
// be empty, in which case DefaultRunnerImage is used.
func NewScheduler(client kubernetes.Interface, namespace, runnerImage string) *Scheduler {
	if runnerImage == "" {
		runnerImage = DefaultRunnerImage
	}
	return &Scheduler{
		client:      client,
		namespace:   namespace,
		runnerImage: runnerImage,
	}
}

// Attach installs two triggers per resolved endpoint, sharing one execution
// role. An empty fleet is a no-op and creates no role. Failure to create the
// shared role is fatal; failure to create triggers for one endpoint is
// recorded in its binding and the remaining endpoints still get theirs.
// Re-applying the same fleet and window converges on the same triggers.
func (s *Scheduler) Attach(ctx context.Context, f fleet.ResolvedFleet, w Window) ([]Binding, error) {
	if f.Empty() {
		return nil, nil
	}

	if err := w.Validate(); err != nil {
		return nil, err
	}

	if err := s.ensureRole(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure scheduler role: %w", err)
	}

	bindings := make([]Binding, 0, len(f.Endpoints))
	for _, e := range f.Endpoints {
		b := Binding{EndpointName: e.Name, Role: RoleName}

		start, err := s.ensureTrigger(ctx, e.ResourceName, "start", w.StartExpr)
		if err == nil {
			b.StartTrigger = start
			var stop string
			stop, err = s.ensureTrigger(ctx, e.ResourceName, "stop", w.StopExpr)
			b.StopTrigger = stop
		}
		if err != nil {
			slog.Error("failed to install schedule trigger",
				"endpoint", e.ResourceName, "error", err)
			b.Err = err
		} else {
			slog.Info("schedule triggers installed",
				"endpoint", e.ResourceName,
				"start", w.StartExpr,
				"stop", w.StopExpr,
			)
		}

		bindings = append(bindings, b)
	}

	return bindings, nil
}

// Detach removes the triggers for the named endpoint. Missing triggers are
// not an error.
func (s *Scheduler) Detach(ctx context.Context, endpointName string) error {
	for _, action := range []string{"start", "stop"} {
		name := triggerName(endpointName, action)
		err := s.client.BatchV1().CronJobs(s.namespace).Delete(ctx, name, metav1.DeleteOptions{})
		if err != nil && !apierrors.IsNotFound(err) {
			return fmt.Errorf("failed to delete trigger %s: %w", name, err)
		}
	}
	return nil
}

// ensureRole creates the shared ServiceAccount, Role, and RoleBinding the
// trigger jobs run under.
func (s *Scheduler) ensureRole(ctx context.Context) error {
	labels := map[string]string{"app.kubernetes.io/managed-by": managedBy}

	sa := &corev1.ServiceAccount{
		ObjectMeta: metav1.ObjectMeta{
			Name:      RoleName,
			Namespace: s.namespace,
			Labels:    labels,
		},
	}
	if _, err := s.client.CoreV1().ServiceAccounts(s.namespace).Create(ctx, sa, metav1.CreateOptions{}); err != nil && !apierrors.IsAlreadyExists(err) {
		return fmt.Errorf("service account: %w", err)
	}

	role := &rbacv1.Role{
		ObjectMeta: metav1.ObjectMeta{
			Name:      RoleName,
			Namespace: s.namespace,
			Labels:    labels,
		},
		Rules: []rbacv1.PolicyRule{
			{
				APIGroups: []string{"serving.kserve.io"},
				Resources: []string{"inferenceservices"},
				Verbs:     []string{"get", "update", "patch"},
			},
		},
	}
	if _, err := s.client.RbacV1().Roles(s.namespace).Create(ctx, role, metav1.CreateOptions{}); err != nil && !apierrors.IsAlreadyExists(err) {
		return fmt.Errorf("role: %w", err)
	}

	binding := &rbacv1.RoleBinding{
		ObjectMeta: metav1.ObjectMeta{
			Name:      RoleName,
			Namespace: s.namespace,
			Labels:    labels,
		},
		Subjects: []rbacv1.Subject{
			{
				Kind:      rbacv1.ServiceAccountKind,
				Name:      RoleName,
				Namespace: s.namespace,
			},
		},
		RoleRef: rbacv1.RoleRef{
			APIGroup: rbacv1.GroupName,
			Kind:     "Role",
			Name:     RoleName,
		},
	}
	if _, err := s.client.RbacV1().RoleBindings(s.namespace).Create(ctx, binding, metav1.CreateOptions{}); err != nil && !apierrors.IsAlreadyExists(err) {
		return fmt.Errorf("role binding: %w", err)
	}

	return nil
}

// ensureTrigger creates or updates one CronJob invoking the given lifecycle
// action against the endpoint.
func (s *Scheduler) ensureTrigger(ctx context.Context, endpointName, action, expr string) (string, error) {
	cj := s.buildTrigger(endpointName, action, expr)

	_, err := s.client.BatchV1().CronJobs(s.namespace).Create(ctx, cj, metav1.CreateOptions{})
	if apierrors.IsAlreadyExists(err) {
		existing, getErr := s.client.BatchV1().CronJobs(s.namespace).Get(ctx, cj.Name, metav1.GetOptions{})
		if getErr != nil {
			return "", getErr
		}
		existing.Labels = cj.Labels
		existing.Spec = cj.Spec
		_, err = s.client.BatchV1().CronJobs(s.namespace).Update(ctx, existing, metav1.UpdateOptions{})
	}
	if err != nil {
		return "", fmt.Errorf("cronjob %s: %w", cj.Name, err)
	}

	return cj.Name, nil
}

func (s *Scheduler) buildTrigger(endpointName, action, expr string) *batchv1.CronJob {
	name := triggerName(endpointName, action)

	return &batchv1.CronJob{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: s.namespace,
			Labels: map[string]string{
				"app.kubernetes.io/managed-by":     managedBy,
				"llm-fleet.giantswarm.io/endpoint": endpointName,
				"llm-fleet.giantswarm.io/action":   action,
			},
		},
		Spec: batchv1.CronJobSpec{
			Schedule:          expr,
			ConcurrencyPolicy: batchv1.ForbidConcurrent,
			JobTemplate: batchv1.JobTemplateSpec{
				Spec: batchv1.JobSpec{
					Template: corev1.PodTemplateSpec{
						Spec: corev1.PodSpec{
							ServiceAccountName: RoleName,
							RestartPolicy:      corev1.RestartPolicyOnFailure,
							Containers: []corev1.Container{
								{
									Name:  action,
									Image: s.runnerImage,
									Args:  []string{action, endpointName, "-n", s.namespace, "--in-cluster"},
								},
							},
						},
					},
				},
			},
		},
	}
}

// triggerName derives the CronJob name for an endpoint action, respecting
// the Kubernetes name length limit. Over-long endpoint names are truncated
// with a hash of the full name so distinct endpoints cannot collide on the
// same trigger.
func triggerName(endpointName, action string) string {
	const maxLen = 63
	suffix := "-" + action
	if len(endpointName)+len(suffix) <= maxLen {
		return endpointName + suffix
	}

	sum := sha256.Sum256([]byte(endpointName))
	hash := hex.EncodeToString(sum[:])[:8]
	keep := maxLen - len(suffix) - len(hash) - 1
	return endpointName[:keep] + "-" + hash + suffix
}
