package pool

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"

	"github.com/cipherpool/cipherpool/crypto/ethereum"
	"github.com/cipherpool/cipherpool/crypto/fhe"
	"github.com/cipherpool/cipherpool/crypto/fhe/localfhe"
	"github.com/cipherpool/cipherpool/storage"
	"github.com/cipherpool/cipherpool/storage/db/metadb"
	"github.com/cipherpool/cipherpool/types"
)

type testEnv struct {
	pools   *Pools
	engine  *localfhe.Engine
	gateway *localfhe.Gateway
	self    common.Address
	owner   common.Address
	other   common.Address
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	c := qt.New(t)

	gatewayKeys := ethereum.NewSignKeys()
	c.Assert(gatewayKeys.Generate(), qt.IsNil)
	engine, err := localfhe.New(gatewayKeys.Address())
	c.Assert(err, qt.IsNil)

	selfKeys := ethereum.NewSignKeys()
	c.Assert(selfKeys.Generate(), qt.IsNil)
	ownerKeys := ethereum.NewSignKeys()
	c.Assert(ownerKeys.Generate(), qt.IsNil)
	otherKeys := ethereum.NewSignKeys()
	c.Assert(otherKeys.Generate(), qt.IsNil)

	stg := storage.New(metadb.NewTest(t))
	return &testEnv{
		pools:   New(stg, engine, selfKeys.Address()),
		engine:  engine,
		gateway: localfhe.NewGateway(gatewayKeys, engine.PublicKey()),
		self:    selfKeys.Address(),
		owner:   ownerKeys.Address(),
		other:   otherKeys.Address(),
	}
}

func (e *testEnv) submit(c *qt.C, pid types.PoolID, value int64) {
	external, attestation, err := e.gateway.Seal(value)
	c.Assert(err, qt.IsNil)
	c.Assert(e.pools.SubmitScore(pid, external, attestation), qt.IsNil)
}

func TestBootstrapAndTransfer(t *testing.T) {
	c := qt.New(t)
	e := newTestEnv(t)
	pid := types.NewPoolID("lunch-spots")

	// Zero owner address is a validation error.
	err := e.pools.SetOwner(pid, e.owner, common.Address{})
	c.Assert(err, qt.ErrorIs, ErrValidation)

	// First caller wins the bootstrap, whoever it is.
	c.Assert(e.pools.SetOwner(pid, e.other, e.owner), qt.IsNil)
	c.Assert(e.pools.Owner(pid), qt.Equals, e.owner)
	c.Assert(e.pools.RatingsCount(pid), qt.Equals, uint64(0))

	// Bootstrap establishes encrypted zero accumulators.
	c.Assert(e.pools.SumHandle(pid).IsZero(), qt.IsFalse)
	c.Assert(e.pools.AvgHandle(pid).IsZero(), qt.IsFalse)

	// The losing bootstrapper hits the already-exists branch.
	err = e.pools.SetOwner(pid, e.other, e.other)
	c.Assert(err, qt.ErrorIs, ErrAuthorization)
	c.Assert(e.pools.Owner(pid), qt.Equals, e.owner)

	// The current owner can transfer.
	c.Assert(e.pools.SetOwner(pid, e.owner, e.other), qt.IsNil)
	c.Assert(e.pools.Owner(pid), qt.Equals, e.other)
}

func TestAccessorsOnMissingPool(t *testing.T) {
	c := qt.New(t)
	e := newTestEnv(t)
	pid := types.NewPoolID("never-referenced")

	// Absence yields defaults, not errors.
	c.Assert(e.pools.Owner(pid), qt.Equals, common.Address{})
	c.Assert(e.pools.RatingsCount(pid), qt.Equals, uint64(0))
	c.Assert(e.pools.SumHandle(pid).IsZero(), qt.IsTrue)
	c.Assert(e.pools.AvgHandle(pid).IsZero(), qt.IsTrue)
	c.Assert(e.pools.Version(), qt.Equals, types.Version)
}

func TestSubmitRequiresConfiguredPool(t *testing.T) {
	c := qt.New(t)
	e := newTestEnv(t)
	pid := types.NewPoolID("not-configured")

	external, attestation, err := e.gateway.Seal(50)
	c.Assert(err, qt.IsNil)
	err = e.pools.SubmitScore(pid, external, attestation)
	c.Assert(err, qt.ErrorIs, ErrState)
	c.Assert(e.pools.RatingsCount(pid), qt.Equals, uint64(0))
}

func TestSubmitRejectsInvalidAttestation(t *testing.T) {
	c := qt.New(t)
	e := newTestEnv(t)
	pid := types.NewPoolID("attested")
	c.Assert(e.pools.SetOwner(pid, e.owner, e.owner), qt.IsNil)

	external, _, err := e.gateway.Seal(50)
	c.Assert(err, qt.IsNil)

	mallory := ethereum.NewSignKeys()
	c.Assert(mallory.Generate(), qt.IsNil)
	forged, err := mallory.SignEthereum(external)
	c.Assert(err, qt.IsNil)

	err = e.pools.SubmitScore(pid, external, forged)
	c.Assert(err, qt.ErrorIs, ErrValidation)
	c.Assert(e.pools.RatingsCount(pid), qt.Equals, uint64(0))
}

// The concrete scenario of the system design: 40, 60, 100 average to 66
// (truncating), the owner publishes, anyone decrypts through the public path,
// and a non-owner cannot grant access.
func TestPublishedAverageScenario(t *testing.T) {
	c := qt.New(t)
	e := newTestEnv(t)
	pid := types.NewPoolID("restaurant")
	c.Assert(e.pools.SetOwner(pid, e.owner, e.owner), qt.IsNil)

	for _, score := range []int64{40, 60, 100} {
		e.submit(c, pid, score)
	}
	c.Assert(e.pools.RatingsCount(pid), qt.Equals, uint64(3))

	c.Assert(e.pools.RecomputeAverage(pid), qt.IsNil)
	avg := e.pools.AvgHandle(pid)

	// The owner got a grant on the fresh handle.
	value, err := e.engine.Decrypt(avg, e.owner)
	c.Assert(err, qt.IsNil)
	c.Assert(value.Int64(), qt.Equals, int64(66))

	// A non-owner cannot grant access nor publish.
	err = e.pools.GrantAccess(pid, e.other, e.other)
	c.Assert(err, qt.ErrorIs, ErrAuthorization)
	err = e.pools.MakePublic(pid, e.other)
	c.Assert(err, qt.ErrorIs, ErrAuthorization)

	// The owner publishes; any party decrypts via the public path.
	c.Assert(e.pools.MakePublic(pid, e.owner), qt.IsNil)
	value, err = e.engine.PublicDecrypt(avg)
	c.Assert(err, qt.IsNil)
	c.Assert(value.Int64(), qt.Equals, int64(66))
}

// Out-of-range submissions are clamped, not rejected: -5 and 150 enter the
// sum as 0 and 100, averaging to 50.
func TestOutOfRangeScoresAreClamped(t *testing.T) {
	c := qt.New(t)
	e := newTestEnv(t)
	pid := types.NewPoolID("clamped")
	c.Assert(e.pools.SetOwner(pid, e.owner, e.owner), qt.IsNil)

	e.submit(c, pid, -5)
	e.submit(c, pid, 150)
	c.Assert(e.pools.RatingsCount(pid), qt.Equals, uint64(2))

	c.Assert(e.pools.RecomputeAverage(pid), qt.IsNil)
	value, err := e.engine.Decrypt(e.pools.AvgHandle(pid), e.owner)
	c.Assert(err, qt.IsNil)
	c.Assert(value.Int64(), qt.Equals, int64(50))
}

func TestRecomputeRequiresScores(t *testing.T) {
	c := qt.New(t)
	e := newTestEnv(t)
	pid := types.NewPoolID("empty")

	// Missing pool.
	err := e.pools.RecomputeAverage(pid)
	c.Assert(err, qt.ErrorIs, ErrState)

	// Existing pool without scores; the cached handle stays untouched.
	c.Assert(e.pools.SetOwner(pid, e.owner, e.owner), qt.IsNil)
	before := e.pools.AvgHandle(pid)
	err = e.pools.RecomputeAverage(pid)
	c.Assert(err, qt.ErrorIs, ErrNoScores)
	c.Assert(e.pools.AvgHandle(pid), qt.Equals, before)
}

func TestRecomputeIsIdempotent(t *testing.T) {
	c := qt.New(t)
	e := newTestEnv(t)
	pid := types.NewPoolID("idempotent")
	c.Assert(e.pools.SetOwner(pid, e.owner, e.owner), qt.IsNil)

	e.submit(c, pid, 10)
	e.submit(c, pid, 25)

	c.Assert(e.pools.RecomputeAverage(pid), qt.IsNil)
	first, err := e.engine.Decrypt(e.pools.AvgHandle(pid), e.owner)
	c.Assert(err, qt.IsNil)

	c.Assert(e.pools.RecomputeAverage(pid), qt.IsNil)
	second, err := e.engine.Decrypt(e.pools.AvgHandle(pid), e.owner)
	c.Assert(err, qt.IsNil)

	// Same decrypted value, regardless of handle identity.
	c.Assert(second.Cmp(first), qt.Equals, 0)
	c.Assert(first.Int64(), qt.Equals, int64(17))
}

// The average is a cached derived value: submissions do not refresh it.
func TestAverageIsStaleUntilRecompute(t *testing.T) {
	c := qt.New(t)
	e := newTestEnv(t)
	pid := types.NewPoolID("stale")
	c.Assert(e.pools.SetOwner(pid, e.owner, e.owner), qt.IsNil)

	e.submit(c, pid, 80)
	c.Assert(e.pools.RecomputeAverage(pid), qt.IsNil)
	cached := e.pools.AvgHandle(pid)

	e.submit(c, pid, 20)
	c.Assert(e.pools.AvgHandle(pid), qt.Equals, cached)
	value, err := e.engine.Decrypt(cached, e.owner)
	c.Assert(err, qt.IsNil)
	c.Assert(value.Int64(), qt.Equals, int64(80))

	c.Assert(e.pools.RecomputeAverage(pid), qt.IsNil)
	value, err = e.engine.Decrypt(e.pools.AvgHandle(pid), e.owner)
	c.Assert(err, qt.IsNil)
	c.Assert(value.Int64(), qt.Equals, int64(50))
}

// Grants bind to the handle present at call time: a recompute produces a
// fresh handle previous readers cannot decrypt until granted again.
func TestGrantsAreNotRenewedOnRecompute(t *testing.T) {
	c := qt.New(t)
	e := newTestEnv(t)
	pid := types.NewPoolID("grants")
	c.Assert(e.pools.SetOwner(pid, e.owner, e.owner), qt.IsNil)

	e.submit(c, pid, 90)
	c.Assert(e.pools.RecomputeAverage(pid), qt.IsNil)
	c.Assert(e.pools.GrantAccess(pid, e.owner, e.other), qt.IsNil)

	granted := e.pools.AvgHandle(pid)
	value, err := e.engine.Decrypt(granted, e.other)
	c.Assert(err, qt.IsNil)
	c.Assert(value.Int64(), qt.Equals, int64(90))

	e.submit(c, pid, 10)
	c.Assert(e.pools.RecomputeAverage(pid), qt.IsNil)
	fresh := e.pools.AvgHandle(pid)
	c.Assert(fresh, qt.Not(qt.Equals), granted)

	// The owner can read the fresh handle, the previous grantee cannot.
	_, err = e.engine.Decrypt(fresh, e.other)
	c.Assert(err, qt.ErrorIs, fhe.ErrAccessDenied)
	value, err = e.engine.Decrypt(fresh, e.owner)
	c.Assert(err, qt.IsNil)
	c.Assert(value.Int64(), qt.Equals, int64(50))

	// The old grant on the old handle remains, grants are permanent.
	value, err = e.engine.Decrypt(granted, e.other)
	c.Assert(err, qt.IsNil)
	c.Assert(value.Int64(), qt.Equals, int64(90))
}

func TestAccessControlRequiresExistingPool(t *testing.T) {
	c := qt.New(t)
	e := newTestEnv(t)
	pid := types.NewPoolID("ghost")

	err := e.pools.GrantAccess(pid, e.owner, e.other)
	c.Assert(err, qt.ErrorIs, ErrState)
	err = e.pools.MakePublic(pid, e.owner)
	c.Assert(err, qt.ErrorIs, ErrState)

	// Zero grantee address.
	c.Assert(e.pools.SetOwner(pid, e.owner, e.owner), qt.IsNil)
	err = e.pools.GrantAccess(pid, e.owner, common.Address{})
	c.Assert(err, qt.ErrorIs, ErrValidation)
}

func TestEventsAreEmittedInCommitOrder(t *testing.T) {
	c := qt.New(t)
	e := newTestEnv(t)
	pid := types.NewPoolID("events")
	events := e.pools.Subscribe()

	c.Assert(e.pools.SetOwner(pid, e.owner, e.owner), qt.IsNil)
	e.submit(c, pid, 70)
	c.Assert(e.pools.RecomputeAverage(pid), qt.IsNil)
	c.Assert(e.pools.GrantAccess(pid, e.owner, e.other), qt.IsNil)
	c.Assert(e.pools.MakePublic(pid, e.owner), qt.IsNil)

	expected := []EventType{
		EventOwnerSet,
		EventScoreSubmitted,
		EventAverageRecomputed,
		EventAccessGranted,
		EventMadePublic,
	}
	for i, want := range expected {
		ev := <-events
		c.Assert(ev.Type, qt.Equals, want, qt.Commentf("event %d", i))
		c.Assert(ev.Pool, qt.Equals, pid)
		if want == EventScoreSubmitted {
			c.Assert(ev.Count, qt.Equals, uint64(1))
		}
		if want == EventAccessGranted {
			c.Assert(ev.To, qt.Equals, e.other)
		}
	}

	// Failed operations emit nothing.
	err := e.pools.MakePublic(pid, e.other)
	c.Assert(err, qt.ErrorIs, ErrAuthorization)
	select {
	case ev := <-events:
		t.Fatalf("unexpected event %v after failed operation", ev.Type)
	default:
	}
}
