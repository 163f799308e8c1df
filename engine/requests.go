package engine

import "context"

// Task and content kinds accepted by the worker.
const (
	TaskGenerative     = "generative"
	TaskClassification = "classification"

	ContentText = "text"
	ContentCode = "code"
)

// warmupEnvelope is a minimal evaluation request; it forces the worker to
// load its models once so the first real call doesn't pay that cost.
func warmupEnvelope() map[string]any {
	return map[string]any{
		"command":   "evaluate_bias",
		"content":   "warm-up",
		"task_type": TaskGenerative,
	}
}

type EvaluateBiasRequest struct {
	Content             string   `json:"content"`
	ProtectedAttribute  string   `json:"protected_attribute,omitempty"`
	ProtectedAttributes []string `json:"protected_attributes,omitempty"`
	TaskType            string   `json:"task_type"`
	ContentType         string   `json:"content_type,omitempty"`
}

// EvaluateBias runs the basic bias evaluation over one piece of content.
func (e *Engine) EvaluateBias(ctx context.Context, req EvaluateBiasRequest) (Result, error) {
	return e.call(ctx, "evaluate_bias", req, defaultTimeout)
}

type EvaluateBiasAdvancedRequest struct {
	Content             string   `json:"content"`
	ProtectedAttributes []string `json:"protected_attributes"`
	TaskType            string   `json:"task_type,omitempty"`
	UseMetricFrame      bool     `json:"use_metricframe"`
	UseAIF360           bool     `json:"use_aif360"`
	MetricNames         []string `json:"metric_names,omitempty"`
	ContentType         string   `json:"content_type,omitempty"`
}

// EvaluateBiasAdvanced runs the multi-metric evaluation. Heavier than
// EvaluateBias, so it gets a longer timeout.
func (e *Engine) EvaluateBiasAdvanced(ctx context.Context, req EvaluateBiasAdvancedRequest) (Result, error) {
	return e.call(ctx, "evaluate_bias_advanced", req, advancedTimeout)
}

type GenerateCounterfactualsRequest struct {
	Content        string `json:"content"`
	SensitiveGroup string `json:"sensitive_group"`
}

func (e *Engine) GenerateCounterfactuals(ctx context.Context, req GenerateCounterfactualsRequest) (Result, error) {
	return e.call(ctx, "generate_counterfactuals", req, defaultTimeout)
}

type CompareCodeBiasRequest struct {
	CodeA     string `json:"code_a"`
	CodeB     string `json:"code_b"`
	PersonaA  string `json:"persona_a,omitempty"`
	PersonaB  string `json:"persona_b,omitempty"`
	LanguageA string `json:"language_a,omitempty"`
	LanguageB string `json:"language_b,omitempty"`
}

func (e *Engine) CompareCodeBias(ctx context.Context, req CompareCodeBiasRequest) (Result, error) {
	return e.call(ctx, "compare_code_bias", req, defaultTimeout)
}

type EvaluateModelOutputsRequest struct {
	Outputs             []string `json:"outputs"`
	ProtectedAttributes []string `json:"protected_attributes"`
	TaskType            string   `json:"task_type"`
	ContentType         string   `json:"content_type,omitempty"`
	Aggregation         string   `json:"aggregation,omitempty"`
}

func (e *Engine) EvaluateModelOutputs(ctx context.Context, req EvaluateModelOutputsRequest) (Result, error) {
	return e.call(ctx, "evaluate_model_outputs", req, advancedTimeout)
}

type EvaluatePromptSuiteRequest struct {
	Prompts             []string       `json:"prompts"`
	ModelOutputs        []string       `json:"model_outputs"`
	ProtectedAttributes []string       `json:"protected_attributes"`
	SuiteName           string         `json:"suite_name,omitempty"`
	TaskType            string         `json:"task_type,omitempty"`
	ContentType         string         `json:"content_type,omitempty"`
	PreviousResults     map[string]any `json:"previous_results,omitempty"`
}

func (e *Engine) EvaluatePromptSuite(ctx context.Context, req EvaluatePromptSuiteRequest) (Result, error) {
	return e.call(ctx, "evaluate_prompt_suite", req, advancedTimeout)
}

type EvaluateModelResponseRequest struct {
	Prompt              string   `json:"prompt"`
	Response            string   `json:"response"`
	ProtectedAttributes []string `json:"protected_attributes"`
	TaskType            string   `json:"task_type,omitempty"`
	ContentType         string   `json:"content_type,omitempty"`
}

func (e *Engine) EvaluateModelResponse(ctx context.Context, req EvaluateModelResponseRequest) (Result, error) {
	return e.call(ctx, "evaluate_model_response", req, defaultTimeout)
}

type AnalyzeRepositoryBiasRequest struct {
	RepositoryPath      string   `json:"repository_path"`
	ProtectedAttributes []string `json:"protected_attributes"`
	MaxCommits          int      `json:"max_commits,omitempty"`
	MinCommitsPerAuthor int      `json:"min_commits_per_author,omitempty"`
	FileExtensions      []string `json:"file_extensions,omitempty"`
	ExcludePaths        []string `json:"exclude_paths,omitempty"`
}

// AnalyzeRepositoryBias walks a repository's commit history; by far the most
// expensive operation, so it gets the longest timeout.
func (e *Engine) AnalyzeRepositoryBias(ctx context.Context, req AnalyzeRepositoryBiasRequest) (Result, error) {
	return e.call(ctx, "analyze_repository_bias", req, repositoryTimeout)
}
