// Package judge runs the panel of LLM judges over two finished verses and
// aggregates their verdicts into a final score.
//
// Judges run one at a time with a pacing delay between them. A judge that
// fails for any reason yields a neutral fallback verdict, so the panel always
// returns one verdict per configured judge. Only scorer verdicts are weighted
// into the totals; advisors contribute feedback text.
package judge
