package strategy

// Generator yields strategy configurations for a sweep. Implementations are
// finite and restartable: after Reset the same sequence is produced again.
type Generator interface {
	Next() (Config, bool)
	Reset()
	Size() int
}

// Collect drains g from the start and returns every configuration it yields.
// g is reset before and after.
func Collect(g Generator) []Config {
	g.Reset()
	defer g.Reset()

	out := make([]Config, 0, g.Size())
	for {
		cfg, ok := g.Next()
		if !ok {
			return out
		}
		out = append(out, cfg)
	}
}
