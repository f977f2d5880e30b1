package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/tools/remotecommand"
	clientgoexec "k8s.io/client-go/util/exec"
)

// ExecResult carries the outcome of an in-pod command execution.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// ExecInPod opens a streamed exec channel against the first pod matching
// selector and runs argv, optionally writing stdin. It returns the exit
// code plus captured stdout/stderr; a non-zero exit is reported via
// ExecResult.ExitCode, not as an error — only transport failures return err.
func (c *Client) ExecInPod(ctx context.Context, namespace, selector string, argv []string, stdin []byte) (*ExecResult, error) {
	if c.restConfig == nil {
		return nil, fmt.Errorf("exec requires a live cluster connection")
	}

	pods, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return nil, fmt.Errorf("listing pods for exec in %s: %w", namespace, err)
	}
	if len(pods.Items) == 0 {
		return nil, fmt.Errorf("no pods match selector %q in namespace %s", selector, namespace)
	}
	pod := pods.Items[0]

	container := ""
	if len(pod.Spec.Containers) > 0 {
		container = pod.Spec.Containers[0].Name
	}

	req := c.clientset.CoreV1().RESTClient().Post().
		Resource("pods").
		Name(pod.Name).
		Namespace(namespace).
		SubResource("exec")

	req.VersionedParams(&corev1.PodExecOptions{
		Container: container,
		Command:   argv,
		Stdin:     len(stdin) > 0,
		Stdout:    true,
		Stderr:    true,
		TTY:       false,
	}, scheme.ParameterCodec)

	executor, err := remotecommand.NewSPDYExecutor(c.restConfig, "POST", req.URL())
	if err != nil {
		return nil, fmt.Errorf("creating exec executor: %w", err)
	}

	var stdout, stderr bytes.Buffer
	streamOpts := remotecommand.StreamOptions{
		Stdout: &stdout,
		Stderr: &stderr,
	}
	if len(stdin) > 0 {
		streamOpts.Stdin = bytes.NewReader(stdin)
	}

	err = executor.StreamWithContext(ctx, streamOpts)
	exitCode := 0
	if err != nil {
		var codeErr clientgoexec.CodeExitError
		if errors.As(err, &codeErr) {
			exitCode = codeErr.Code
		} else {
			return nil, fmt.Errorf("exec in pod %s: %w", pod.Name, err)
		}
	}

	return &ExecResult{ExitCode: exitCode, Stdout: stdout.String(), Stderr: stderr.String()}, nil
}
