// Package rating keeps Glicko-2 ratings for logged-in players. A match is
// rated against the average of the other seats, which is exact for the
// two-seat case and an approximation beyond it.
package rating

import (
	"errors"
	"math"
)

const (
	// Scale converts between the 1500-based display scale and Glicko-2's mu.
	Scale = 173.7178
	// DefaultElo is the rating a new player starts with.
	DefaultElo = 1500.0
	// DefaultRD is the rating deviation a new player starts with.
	DefaultRD = 350.0
	// DefaultVolatility is the starting sigma.
	DefaultVolatility = 0.06
	// Tau constrains volatility changes.
	Tau = 0.5
	// Epsilon is the convergence tolerance of the volatility iteration.
	Epsilon = 0.000001
)

// ErrMismatch is returned by Update when ratings and scores do not line up.
var ErrMismatch = errors.New("ratings and scores differ in length or are fewer than two")

// Rating is a player's rating on the display scale.
type Rating struct {
	Elo        float64
	RD         float64
	Volatility float64
}

func Default() Rating {
	return Rating{Elo: DefaultElo, RD: DefaultRD, Volatility: DefaultVolatility}
}

// glicko2 is a rating in Glicko-2 space.
type glicko2 struct {
	mu    float64
	phi   float64
	sigma float64
}

func (r Rating) toGlicko() glicko2 {
	return glicko2{
		mu:    (r.Elo - DefaultElo) / Scale,
		phi:   r.RD / Scale,
		sigma: r.Volatility,
	}
}

func (g glicko2) toRating() Rating {
	return Rating{
		Elo:        g.mu*Scale + DefaultElo,
		RD:         g.phi * Scale,
		Volatility: g.sigma,
	}
}

// Scores turns a winner list into per-seat results: 1 for a winner, 0
// otherwise. A match without winners is a draw for everyone.
func Scores(seats int, winners []int) []float64 {
	scores := make([]float64, seats)
	if len(winners) == 0 {
		for i := range scores {
			scores[i] = 0.5
		}
		return scores
	}
	for _, w := range winners {
		if w >= 0 && w < seats {
			scores[w] = 1
		}
	}
	return scores
}

// Update rates one match. scores[i] in [0,1] is seat i's result.
func Update(ratings []Rating, scores []float64) ([]Rating, error) {
	if len(ratings) != len(scores) || len(ratings) < 2 {
		return nil, ErrMismatch
	}
	var total float64
	for _, r := range ratings {
		total += r.Elo
	}
	updated := make([]Rating, len(ratings))
	for i, r := range ratings {
		oppElo := (total - r.Elo) / float64(len(ratings)-1)
		opp := Rating{Elo: oppElo, RD: DefaultRD, Volatility: DefaultVolatility}
		updated[i] = update(r.toGlicko(), opp.toGlicko(), scores[i]).toRating()
	}
	return updated, nil
}

// update performs a single-match Glicko-2 step for r against opp.
func update(r, opp glicko2, score float64) glicko2 {
	gVal := g(opp.phi)
	eVal := e(r.mu, opp.mu, opp.phi)

	v := 1.0 / (gVal * gVal * eVal * (1 - eVal))
	delta := v * gVal * (score - eVal)

	a := math.Log(r.sigma * r.sigma)
	A := a
	var B float64
	if delta*delta > r.phi*r.phi+v {
		B = math.Log(delta*delta - r.phi*r.phi - v)
	} else {
		k := 1.0
		for f(a-k*Tau, r.phi, v, delta, a) < 0 {
			k++
		}
		B = a - k*Tau
	}

	fA, fB := f(A, r.phi, v, delta, a), f(B, r.phi, v, delta, a)
	for i := 0; i < 100 && math.Abs(B-A) > Epsilon; i++ {
		C := A + (A-B)*fA/(fB-fA)
		fC := f(C, r.phi, v, delta, a)
		if fC*fB <= 0 {
			A, fA = B, fB
		} else {
			fA /= 2
		}
		B, fB = C, fC
	}

	sigma := math.Exp(A / 2)
	phiStar := math.Sqrt(r.phi*r.phi + sigma*sigma)
	phi := 1.0 / math.Sqrt(1.0/(phiStar*phiStar)+1.0/v)
	return glicko2{
		mu:    r.mu + phi*phi*gVal*(score-eVal),
		phi:   phi,
		sigma: sigma,
	}
}

// g is 1/sqrt(1+3phi^2/pi^2).
func g(phi float64) float64 {
	return 1.0 / math.Sqrt(1.0+3.0*phi*phi/(math.Pi*math.Pi))
}

// e is the expected score of mu against an opponent at mu2 with deviation phi2.
func e(mu, mu2, phi2 float64) float64 {
	return 1.0 / (1.0 + math.Exp(-g(phi2)*(mu-mu2)))
}

// f is the volatility root-finding function.
func f(x, phi, v, delta, a float64) float64 {
	ex := math.Exp(x)
	num := ex * (delta*delta - phi*phi - v - ex)
	den := 2.0 * (phi*phi + v + ex) * (phi*phi + v + ex)
	return num/den - (x-a)/(Tau*Tau)
}
