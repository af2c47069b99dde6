package apo

// Task is one evaluation case: a query plus the expectations the grader
// scores against.
type Task struct {
	Query string

	// Tools the query is expected to exercise.
	ExpectedTools []string

	// Substrings the final answer should contain.
	ExpectedContains []string

	// Target quality for this task, informational only.
	QualityScore float64

	// Which tool an intelligent agent calls first: ChoiceRagFirst for
	// knowledge-base questions, ChoiceArxivFirst for recency-sensitive ones.
	// Empty when either order is acceptable.
	IntelligentChoice string
}

const (
	ChoiceRagFirst   = "rag_query_first"
	ChoiceArxivFirst = "arxiv_search_first"
)

// TrainingTasks returns the prompt-optimization training set.
func TrainingTasks() []Task {
	return []Task{
		{
			Query:             "What is quantum computing?",
			ExpectedTools:     []string{"rag_query"},
			ExpectedContains:  []string{"quantum", "computing"},
			QualityScore:      0.9,
			IntelligentChoice: ChoiceRagFirst,
		},
		{
			Query:             "Explain transformer architecture in deep learning",
			ExpectedTools:     []string{"rag_query"},
			ExpectedContains:  []string{"transformer", "attention"},
			QualityScore:      0.9,
			IntelligentChoice: ChoiceRagFirst,
		},
		{
			Query:             "How does reinforcement learning work?",
			ExpectedTools:     []string{"rag_query"},
			ExpectedContains:  []string{"reinforcement", "learning", "reward"},
			QualityScore:      0.9,
			IntelligentChoice: ChoiceRagFirst,
		},
		{
			Query:             "What is the difference between supervised and unsupervised learning?",
			ExpectedTools:     []string{"rag_query"},
			ExpectedContains:  []string{"supervised", "unsupervised"},
			QualityScore:      0.9,
			IntelligentChoice: ChoiceRagFirst,
		},
		{
			Query:             "Explain gradient descent optimization",
			ExpectedTools:     []string{"rag_query"},
			ExpectedContains:  []string{"gradient", "descent"},
			QualityScore:      0.85,
			IntelligentChoice: ChoiceRagFirst,
		},
		{
			Query:             "How do convolutional neural networks process images?",
			ExpectedTools:     []string{"rag_query"},
			ExpectedContains:  []string{"convolutional", "CNN", "image"},
			QualityScore:      0.9,
			IntelligentChoice: ChoiceRagFirst,
		},
		{
			Query:             "What is attention mechanism in neural networks?",
			ExpectedTools:     []string{"rag_query"},
			ExpectedContains:  []string{"attention", "mechanism"},
			QualityScore:      0.9,
			IntelligentChoice: ChoiceRagFirst,
		},
		{
			Query:             "Explain backpropagation algorithm",
			ExpectedTools:     []string{"rag_query"},
			ExpectedContains:  []string{"backpropagation", "gradient"},
			QualityScore:      0.85,
			IntelligentChoice: ChoiceRagFirst,
		},
		{
			Query:             "How does batch normalization improve training?",
			ExpectedTools:     []string{"rag_query"},
			ExpectedContains:  []string{"batch", "normalization"},
			QualityScore:      0.85,
			IntelligentChoice: ChoiceRagFirst,
		},
		{
			Query:            "What are the latest advances in large language models?",
			ExpectedTools:    []string{"rag_query", "arxiv_search"},
			ExpectedContains: []string{"language model", "LLM"},
			QualityScore:     0.85,
		},
		{
			Query:            "Find papers on neural architecture search",
			ExpectedTools:    []string{"rag_query", "arxiv_search"},
			ExpectedContains: []string{"neural", "architecture"},
			QualityScore:     0.85,
		},
		{
			Query:            "What are recent developments in computer vision?",
			ExpectedTools:    []string{"rag_query", "arxiv_search"},
			ExpectedContains: []string{"vision", "image"},
			QualityScore:     0.85,
		},
		{
			Query:            "Search for papers on federated learning",
			ExpectedTools:    []string{"rag_query", "arxiv_search"},
			ExpectedContains: []string{"federated"},
			QualityScore:     0.85,
		},
		{
			Query:            "What are the applications of graph neural networks?",
			ExpectedTools:    []string{"rag_query", "arxiv_search"},
			ExpectedContains: []string{"graph", "neural network"},
			QualityScore:     0.85,
		},
		{
			Query:             "What are the most recent papers on transformers published in 2024?",
			ExpectedTools:     []string{"arxiv_search"},
			ExpectedContains:  []string{"transformer", "2024"},
			QualityScore:      0.9,
			IntelligentChoice: ChoiceArxivFirst,
		},
		{
			Query:             "Find the latest research on large language models",
			ExpectedTools:     []string{"arxiv_search"},
			ExpectedContains:  []string{"language model", "LLM"},
			QualityScore:      0.9,
			IntelligentChoice: ChoiceArxivFirst,
		},
		{
			Query:             "Search arXiv for papers on quantum computing",
			ExpectedTools:     []string{"arxiv_search"},
			ExpectedContains:  []string{"quantum", "computing"},
			QualityScore:      0.9,
			IntelligentChoice: ChoiceArxivFirst,
		},
		{
			Query:             "What are new developments in neural architecture search?",
			ExpectedTools:     []string{"arxiv_search"},
			ExpectedContains:  []string{"neural", "architecture"},
			QualityScore:      0.85,
			IntelligentChoice: ChoiceArxivFirst,
		},
		{
			Query:             "Find recent papers on few-shot learning",
			ExpectedTools:     []string{"arxiv_search"},
			ExpectedContains:  []string{"few-shot", "learning"},
			QualityScore:      0.85,
			IntelligentChoice: ChoiceArxivFirst,
		},
		{
			Query:             "What are the newest papers on vision transformers?",
			ExpectedTools:     []string{"arxiv_search"},
			ExpectedContains:  []string{"vision", "transformer"},
			QualityScore:      0.85,
			IntelligentChoice: ChoiceArxivFirst,
		},
	}
}

// ValidationTasks returns the held-out validation set.
func ValidationTasks() []Task {
	return []Task{
		{
			Query:             "What is machine learning?",
			ExpectedTools:     []string{"rag_query"},
			ExpectedContains:  []string{"machine learning"},
			QualityScore:      0.9,
			IntelligentChoice: ChoiceRagFirst,
		},
		{
			Query:             "Explain the concept of overfitting in machine learning",
			ExpectedTools:     []string{"rag_query"},
			ExpectedContains:  []string{"overfitting"},
			QualityScore:      0.9,
			IntelligentChoice: ChoiceRagFirst,
		},
		{
			Query:             "What are the latest research papers on GPT models?",
			ExpectedTools:     []string{"arxiv_search"},
			ExpectedContains:  []string{"GPT", "language model"},
			QualityScore:      0.85,
			IntelligentChoice: ChoiceArxivFirst,
		},
		{
			Query:             "How do variational autoencoders work?",
			ExpectedTools:     []string{"rag_query"},
			ExpectedContains:  []string{"variational", "autoencoder"},
			QualityScore:      0.85,
			IntelligentChoice: ChoiceRagFirst,
		},
		{
			Query:             "Search for papers on contrastive learning",
			ExpectedTools:     []string{"arxiv_search"},
			ExpectedContains:  []string{"contrastive"},
			QualityScore:      0.85,
			IntelligentChoice: ChoiceArxivFirst,
		},
	}
}
