// SPDX-License-Identifier: MIT

package instances

// Option customizes instance generation. Constructors validate their input and
// panic on meaningless values; generators themselves return errors.
type Option func(*genConfig)

type genConfig struct {
	factors     int
	budgetRatio float64
	theta       float64
	psiWeight   float64
	droSize     float64
	pairs       bool
	pairRadius  float64
	queries     int
	noise       float64
}

const (
	minItems = 5

	defaultKnapsackFactors = 4
	defaultKnapsackBudget  = 0.5
	defaultTheta           = 0.8
	defaultPsiWeight       = 0.2
	defaultBestBoxBudget   = 0.5
	defaultDROSize         = 1.0
	defaultPairRadius      = 0.15
	defaultElicitFactors   = 3
	defaultQueries         = 2
)

// newKnapsackConfig resolves options over the knapsack defaults.
func newKnapsackConfig(opts []Option) genConfig {
	c := genConfig{
		factors:     defaultKnapsackFactors,
		budgetRatio: defaultKnapsackBudget,
		theta:       defaultTheta,
		psiWeight:   defaultPsiWeight,
	}
	for _, o := range opts {
		o(&c)
	}

	return c
}

// newBestBoxConfig resolves options over the best-box defaults; 0 factors
// means n/2.
func newBestBoxConfig(n int, opts []Option) genConfig {
	c := genConfig{
		budgetRatio: defaultBestBoxBudget,
		droSize:     defaultDROSize,
		pairRadius:  defaultPairRadius,
	}
	for _, o := range opts {
		o(&c)
	}
	if c.factors == 0 {
		c.factors = n / 2
	}

	return c
}

// newElicitationConfig resolves options over the elicitation defaults.
func newElicitationConfig(opts []Option) genConfig {
	c := genConfig{
		factors: defaultElicitFactors,
		queries: defaultQueries,
	}
	for _, o := range opts {
		o(&c)
	}

	return c
}

// WithFactors sets the number of risk factors. Panics if f < 1.
func WithFactors(f int) Option {
	if f < 1 {
		panic("instances: WithFactors(f<1)")
	}
	return func(c *genConfig) { c.factors = f }
}

// WithBudgetRatio sets the budget as a fraction of the total item cost.
// Panics unless 0 < r ≤ 1.
func WithBudgetRatio(r float64) Option {
	if r <= 0 || r > 1 {
		panic("instances: WithBudgetRatio(r outside (0,1])")
	}
	return func(c *genConfig) { c.budgetRatio = r }
}

// WithTheta sets the fraction of profit earned by late investment (knapsack).
// Panics unless 0 ≤ t ≤ 1.
func WithTheta(t float64) Option {
	if t < 0 || t > 1 {
		panic("instances: WithTheta(t outside [0,1])")
	}
	return func(c *genConfig) { c.theta = t }
}

// WithPsiWeight sets the ambiguity weight of the knapsack objective row; 0
// disables the ambiguity term. Panics if w < 0.
func WithPsiWeight(w float64) Option {
	if w < 0 {
		panic("instances: WithPsiWeight(w<0)")
	}
	return func(c *genConfig) { c.psiWeight = w }
}

// WithDROSize sets the radius of the best-box ambiguity set. Panics if d < 0.
func WithDROSize(d float64) Option {
	if d < 0 {
		panic("instances: WithDROSize(d<0)")
	}
	return func(c *genConfig) { c.droSize = d }
}

// WithPairs adds pairwise deviation parameters to the best-box ambiguity set,
// with the given radius. Panics if radius < 0.
func WithPairs(radius float64) Option {
	if radius < 0 {
		panic("instances: WithPairs(radius<0)")
	}
	return func(c *genConfig) {
		c.pairs = true
		c.pairRadius = radius
	}
}

// WithQueries sets the number of items rated before the recommendation.
// Panics if q < 0.
func WithQueries(q int) Option {
	if q < 0 {
		panic("instances: WithQueries(q<0)")
	}
	return func(c *genConfig) { c.queries = q }
}

// WithNoise bounds the total rating noise of the elicitation model; 0
// disables it. Panics if g < 0.
func WithNoise(g float64) Option {
	if g < 0 {
		panic("instances: WithNoise(g<0)")
	}
	return func(c *genConfig) { c.noise = g }
}
