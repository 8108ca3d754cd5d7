package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/cipherpool/cipherpool/crypto/ethereum"
	"github.com/cipherpool/cipherpool/crypto/fhe/localfhe"
	"github.com/cipherpool/cipherpool/pool"
	"github.com/cipherpool/cipherpool/storage"
	"github.com/cipherpool/cipherpool/storage/db/metadb"
	"github.com/cipherpool/cipherpool/types"
)

type testServer struct {
	api     *API
	engine  *localfhe.Engine
	gateway *localfhe.Gateway
	owner   *ethereum.SignKeys
	other   *ethereum.SignKeys
	srv     *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	c := qt.New(t)

	gatewayKeys := ethereum.NewSignKeys()
	c.Assert(gatewayKeys.Generate(), qt.IsNil)
	engine, err := localfhe.New(gatewayKeys.Address())
	c.Assert(err, qt.IsNil)

	selfKeys := ethereum.NewSignKeys()
	c.Assert(selfKeys.Generate(), qt.IsNil)
	owner := ethereum.NewSignKeys()
	c.Assert(owner.Generate(), qt.IsNil)
	other := ethereum.NewSignKeys()
	c.Assert(other.Generate(), qt.IsNil)

	pools := pool.New(storage.New(metadb.NewTest(t)), engine, selfKeys.Address())
	a := NewForTest(pools)
	srv := httptest.NewServer(a.Router())
	t.Cleanup(srv.Close)

	return &testServer{
		api:     a,
		engine:  engine,
		gateway: localfhe.NewGateway(gatewayKeys, engine.PublicKey()),
		owner:   owner,
		other:   other,
		srv:     srv,
	}
}

func (ts *testServer) post(c *qt.C, path string, body any) (int, map[string]json.RawMessage) {
	data, err := json.Marshal(body)
	c.Assert(err, qt.IsNil)
	resp, err := http.Post(ts.srv.URL+path, "application/json", bytes.NewReader(data))
	c.Assert(err, qt.IsNil)
	defer func() { c.Assert(resp.Body.Close(), qt.IsNil) }()
	decoded := map[string]json.RawMessage{}
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp.StatusCode, decoded
}

func (ts *testServer) get(c *qt.C, path string, out any) int {
	resp, err := http.Get(ts.srv.URL + path)
	c.Assert(err, qt.IsNil)
	defer func() { c.Assert(resp.Body.Close(), qt.IsNil) }()
	if out != nil {
		c.Assert(json.NewDecoder(resp.Body).Decode(out), qt.IsNil)
	}
	return resp.StatusCode
}

func (ts *testServer) setOwner(c *qt.C, pid types.PoolID, signer *ethereum.SignKeys, newOwner *ethereum.SignKeys) (int, map[string]json.RawMessage) {
	sig, err := signer.SignEthereum(SetOwnerMessage(pid, newOwner.Address()))
	c.Assert(err, qt.IsNil)
	return ts.post(c, "/pools/"+pid.String()+"/owner", &SetOwnerRequest{
		NewOwner:  newOwner.Address(),
		Signature: sig,
	})
}

func TestPoolLifecycleOverHTTP(t *testing.T) {
	c := qt.New(t)
	ts := newTestServer(t)
	pid := types.NewPoolID("api-lifecycle")

	// Ping.
	c.Assert(ts.get(c, "/ping", nil), qt.Equals, http.StatusOK)

	// Bootstrap the pool; the owner signs its own appointment.
	status, _ := ts.setOwner(c, pid, ts.owner, ts.owner)
	c.Assert(status, qt.Equals, http.StatusOK)

	// Submit three scores.
	for _, score := range []int64{40, 60, 100} {
		external, attestation, err := ts.gateway.Seal(score)
		c.Assert(err, qt.IsNil)
		status, body := ts.post(c, "/pools/"+pid.String()+"/scores", &SubmitScoreRequest{
			Ciphertext:  external,
			Attestation: attestation,
		})
		c.Assert(status, qt.Equals, http.StatusOK, qt.Commentf("body: %v", body))
	}

	// Recompute the average; anyone may trigger it.
	status, _ = ts.post(c, "/pools/"+pid.String()+"/average", struct{}{})
	c.Assert(status, qt.Equals, http.StatusOK)

	// Pool info reflects the state.
	info := &PoolResponse{}
	c.Assert(ts.get(c, "/pools/"+pid.String(), info), qt.Equals, http.StatusOK)
	c.Assert(info.Owner, qt.Equals, ts.owner.Address())
	c.Assert(info.Count, qt.Equals, uint64(3))
	c.Assert(info.AvgHandle, qt.Not(qt.HasLen), 0)
	c.Assert(info.Version, qt.Equals, types.Version)

	// Publish and decrypt through the public path.
	sig, err := ts.owner.SignEthereum(MakePublicMessage(pid))
	c.Assert(err, qt.IsNil)
	status, _ = ts.post(c, "/pools/"+pid.String()+"/public", &MakePublicRequest{Signature: sig})
	c.Assert(status, qt.Equals, http.StatusOK)

	value, err := ts.engine.PublicDecrypt(ts.api.pools.AvgHandle(pid))
	c.Assert(err, qt.IsNil)
	c.Assert(value.Int64(), qt.Equals, int64(66))
}

func TestOwnerGatingOverHTTP(t *testing.T) {
	c := qt.New(t)
	ts := newTestServer(t)
	pid := types.NewPoolID("api-gating")

	status, _ := ts.setOwner(c, pid, ts.owner, ts.owner)
	c.Assert(status, qt.Equals, http.StatusOK)

	// A non-owner cannot transfer ownership.
	status, body := ts.setOwner(c, pid, ts.other, ts.other)
	c.Assert(status, qt.Equals, http.StatusForbidden, qt.Commentf("body: %v", body))

	// A non-owner cannot grant access.
	sig, err := ts.other.SignEthereum(GrantAccessMessage(pid, ts.other.Address()))
	c.Assert(err, qt.IsNil)
	status, _ = ts.post(c, "/pools/"+pid.String()+"/access", &GrantAccessRequest{
		To:        ts.other.Address(),
		Signature: sig,
	})
	c.Assert(status, qt.Equals, http.StatusForbidden)

	// A signature over the wrong pool recovers a different caller and is
	// rejected as not-owner rather than accepted.
	wrongPool := types.NewPoolID("some-other-pool")
	sig, err = ts.owner.SignEthereum(MakePublicMessage(wrongPool))
	c.Assert(err, qt.IsNil)
	status, _ = ts.post(c, "/pools/"+pid.String()+"/public", &MakePublicRequest{Signature: sig})
	c.Assert(status, qt.Equals, http.StatusForbidden)
}

func TestSubmitAndRecomputeFailuresOverHTTP(t *testing.T) {
	c := qt.New(t)
	ts := newTestServer(t)
	pid := types.NewPoolID("api-failures")

	// Submission to a pool that was never configured.
	external, attestation, err := ts.gateway.Seal(10)
	c.Assert(err, qt.IsNil)
	status, _ := ts.post(c, "/pools/"+pid.String()+"/scores", &SubmitScoreRequest{
		Ciphertext:  external,
		Attestation: attestation,
	})
	c.Assert(status, qt.Equals, http.StatusConflict)

	// Recompute on a missing pool.
	status, _ = ts.post(c, "/pools/"+pid.String()+"/average", struct{}{})
	c.Assert(status, qt.Equals, http.StatusNotFound)

	// Recompute with zero scores.
	status, _ = ts.setOwner(c, pid, ts.owner, ts.owner)
	c.Assert(status, qt.Equals, http.StatusOK)
	status, _ = ts.post(c, "/pools/"+pid.String()+"/average", struct{}{})
	c.Assert(status, qt.Equals, http.StatusConflict)

	// Malformed pool identifier.
	status, _ = ts.post(c, "/pools/nothex/average", struct{}{})
	c.Assert(status, qt.Equals, http.StatusBadRequest)

	// Malformed body.
	resp, err := http.Post(ts.srv.URL+"/pools/"+pid.String()+"/scores", "application/json",
		bytes.NewReader([]byte("{not json")))
	c.Assert(err, qt.IsNil)
	c.Assert(resp.Body.Close(), qt.IsNil)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusBadRequest)

	// Missing pool returns defaults, not an error.
	info := &PoolResponse{}
	missing := types.NewPoolID("api-missing")
	c.Assert(ts.get(c, fmt.Sprintf("/pools/%s", missing), info), qt.Equals, http.StatusOK)
	c.Assert(info.Count, qt.Equals, uint64(0))
	c.Assert(info.SumHandle, qt.HasLen, 0)
}
