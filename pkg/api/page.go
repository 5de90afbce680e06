package api

type (
	// PageID uniquely identifies a page (section) of an intake workflow
	PageID string

	// StepID uniquely identifies a question or virtual step on a page
	StepID string

	// Page is one screen of the progressive intake UI, optionally gated
	// by visibleIf/skipIf condition trees over stored answers
	Page struct {
		VisibleIf *Condition `json:"visible_if,omitempty"`
		SkipIf    *Condition `json:"skip_if,omitempty"`
		ID        PageID     `json:"id"`
		Title     string     `json:"title,omitempty"`
		Order     int        `json:"order"`
	}

	// PageStep is a question or virtual step on a page. Virtual steps
	// hold outputs never shown to a human (for example compute results)
	PageStep struct {
		VisibleIf *Condition `json:"visible_if,omitempty"`
		ID        StepID     `json:"id"`
		SectionID PageID     `json:"section_id"`
		Alias     string     `json:"alias"`
		Order     int        `json:"order"`
		Required  bool       `json:"required,omitempty"`
		Virtual   bool       `json:"virtual,omitempty"`
	}

	// NavigationState is the page-level visibility result, recomputed per
	// request and never persisted
	NavigationState struct {
		VisiblePages   []PageID `json:"visible_pages"`
		HiddenPages    []PageID `json:"hidden_pages"`
		SkippedPages   []PageID `json:"skipped_pages"`
		NextPageID     PageID   `json:"next_page_id,omitempty"`
		PreviousPageID PageID   `json:"previous_page_id,omitempty"`
		Progress       int      `json:"progress"`
	}

	// QuestionVisibility is the question-level visibility result for one
	// page, with per-step diagnostic reasons
	QuestionVisibility struct {
		VisibilityReasons map[StepID]string `json:"visibility_reasons"`
		VisibleQuestions  []StepID          `json:"visible_questions"`
		HiddenQuestions   []StepID          `json:"hidden_questions"`
	}

	// ValidationFilter partitions required questions by visibility so the
	// caller never demands unseen answers
	ValidationFilter struct {
		RequiredQuestions []StepID `json:"required_questions"`
		SkippedQuestions  []StepID `json:"skipped_questions"`
	}
)
