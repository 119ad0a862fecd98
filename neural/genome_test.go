package neural

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBuildRandomRespectsRanks(t *testing.T) {
	c := NewCatalog(6)
	for seed := int64(1); seed <= 50; seed++ {
		g, err := BuildRandom(c, 32, rand.New(rand.NewSource(seed)))
		if err != nil {
			t.Fatalf("seed %d: BuildRandom: %v", seed, err)
		}
		conns := g.Graph().Connections()
		if len(conns) != 32 {
			t.Fatalf("seed %d: %d connections, want 32", seed, len(conns))
		}
		for _, conn := range conns {
			if conn.Source.Role() == RoleHidden && conn.Dest.Role() == RoleHidden && conn.Source.Rank >= conn.Dest.Rank {
				t.Errorf("seed %d: %s -> %s breaks rank order", seed, conn.Source, conn.Dest)
			}
			if conn.Source.Role() == RoleActuator || conn.Dest.Role() == RoleSensor {
				t.Errorf("seed %d: %s -> %s has wrong roles", seed, conn.Source, conn.Dest)
			}
			if conn.Weight <= -MaxWeight || conn.Weight >= MaxWeight {
				t.Errorf("seed %d: weight %v out of range", seed, conn.Weight)
			}
		}
	}
}

func TestBuildRandomNeverPicksNoOp(t *testing.T) {
	c := NewCatalog(2)
	g, err := BuildRandom(c, 200, rand.New(rand.NewSource(11)))
	if err != nil {
		t.Fatalf("BuildRandom: %v", err)
	}
	for _, conn := range g.Graph().Connections() {
		if conn.Dest.IsNoOp() {
			t.Fatal("NoOp wired as a destination")
		}
	}
}

func TestBuildRandomDeterministic(t *testing.T) {
	c := NewCatalog(4)
	a, err := BuildRandom(c, 16, rand.New(rand.NewSource(99)))
	if err != nil {
		t.Fatal(err)
	}
	b, err := BuildRandom(c, 16, rand.New(rand.NewSource(99)))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(a.Graph().Connections(), b.Graph().Connections()); diff != "" {
		t.Errorf("same seed built different genomes (-a +b):\n%s", diff)
	}
}

func TestDuplicateIsStructuralCopy(t *testing.T) {
	c := NewCatalog(4)
	orig, err := BuildRandom(c, 24, rand.New(rand.NewSource(5)))
	if err != nil {
		t.Fatal(err)
	}
	dup := orig.Duplicate()

	if dup.Graph() == orig.Graph() {
		t.Fatal("duplicate shares the graph")
	}
	if diff := cmp.Diff(orig.Graph().Connections(), dup.Graph().Connections()); diff != "" {
		t.Errorf("connections differ (-orig +dup):\n%s", diff)
	}
	if diff := cmp.Diff(orig.Graph().Dump(), dup.Graph().Dump()); diff != "" {
		t.Errorf("dumps differ (-orig +dup):\n%s", diff)
	}
}

func TestDuplicateRunsIdentically(t *testing.T) {
	c := NewCatalog(3)
	orig, err := BuildRandom(c, 40, rand.New(rand.NewSource(21)))
	if err != nil {
		t.Fatal(err)
	}
	dup := orig.Duplicate()

	ctx := newFakeContext()
	ctx.sense[KindAge] = 0.3
	ctx.sense[KindXPosition] = -0.7
	ctx.sense[KindBlockForward] = 1

	rngA := rand.New(rand.NewSource(8))
	rngB := rand.New(rand.NewSource(8))
	for tick := 0; tick < 20; tick++ {
		if err := orig.Graph().Evaluate(ctx); err != nil {
			t.Fatal(err)
		}
		if err := dup.Graph().Evaluate(ctx); err != nil {
			t.Fatal(err)
		}
		for _, n := range c.All() {
			va, oka := orig.Graph().Value(n)
			vb, okb := dup.Graph().Value(n)
			if oka != okb || math.Float64bits(va) != math.Float64bits(vb) {
				t.Fatalf("tick %d: %s = (%v,%v) vs (%v,%v)", tick, n, va, oka, vb, okb)
			}
		}
		a, err := orig.Graph().PickAction(ctx, rngA)
		if err != nil {
			t.Fatal(err)
		}
		b, err := dup.Graph().PickAction(ctx, rngB)
		if err != nil {
			t.Fatal(err)
		}
		if a != b {
			t.Fatalf("tick %d: picked %s vs %s", tick, a, b)
		}
	}
}

func TestDuplicateSharesNoCounters(t *testing.T) {
	c := NewCatalog(0)
	g := NewGraph(c)
	move := kindNeuron(t, c, KindMoveForward)
	mustConnect(t, g, kindNeuron(t, c, KindConstant), move, 1)
	orig := NewGenome(g)
	dup := orig.Duplicate()

	ctx := newFakeContext()
	if err := orig.Graph().Evaluate(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := orig.Graph().ApplyAction(ctx, move); err != nil {
		t.Fatal(err)
	}
	if st := dup.Graph().Stats(move); st.Hits != 0 {
		t.Errorf("duplicate saw original's hits: %+v", st)
	}
	if _, ok := dup.Graph().Value(move); ok {
		t.Error("duplicate saw original's values")
	}
}

func TestLottery(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if _, ok := lottery(rng, nil); ok {
		t.Error("empty lottery resolved")
	}
	if _, ok := lottery(rng, []float64{0, 0}); ok {
		t.Error("all-zero lottery resolved")
	}
	for i := 0; i < 100; i++ {
		idx, ok := lottery(rng, []float64{0, 1, 0})
		if !ok || idx != 1 {
			t.Fatalf("lottery = %d, %v; want 1", idx, ok)
		}
	}
}
