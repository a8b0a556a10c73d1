package config

// The audited deployment. Base URL, root container and route table are fixed
// at build time and cannot be overridden by configuration.
const (
	BaseURL      = "https://htgaa-biobootcamp.netlify.app/"
	RootSelector = "#app"
)

var routes = []string{
	"#/",
	"#/topic/sequencing",
	"#/topic/synthesis",
	"#/topic/editing",
	"#/topic/genetic-codes",
	"#/topic/gel-electrophoresis",
	"#/topic/central-dogma",
	"#/flashcards",
	"#/exam",
	"#/glossary",
	"#/compare",
	"#/summary",
	"#/concept-map",
	"#/homework",
}

// Routes returns a copy of the audited route fragments in visiting order.
func Routes() []string {
	out := make([]string, len(routes))
	copy(out, routes)
	return out
}
