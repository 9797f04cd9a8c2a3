package models

// PageState tracks a URL through one iteration of the crawl loop.
type PageState string

const (
	PageStatePending     PageState = "pending"
	PageStateRendering   PageState = "rendering"
	PageStateClassifying PageState = "classifying"
	PageStateExtracting  PageState = "extracting"
	PageStateExpanding   PageState = "expanding"
	PageStateDone        PageState = "done"
	PageStateSkipped     PageState = "skipped"
	// PageStateFailed is a terminal done state for pages whose render or parse failed.
	PageStateFailed PageState = "failed"
)
