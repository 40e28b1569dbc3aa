package corba

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type echoServant struct{}

func TestActivateObjectAssignsIDAndRoundTrips(t *testing.T) {
	orb := Init()
	poa := orb.GetRootPOA()

	servant := &echoServant{}
	id, err := poa.ActivateObject(servant)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := poa.IDToServant(id)
	require.NoError(t, err)
	require.Same(t, servant, got)

	backID, err := poa.ServantToID(servant)
	require.NoError(t, err)
	require.Equal(t, id, backID)
}

func TestActivateObjectWithIDCollisionIsRejected(t *testing.T) {
	orb := Init()
	poa := orb.GetRootPOA()

	id := ObjectID("fixed-id")
	require.NoError(t, poa.ActivateObjectWithID(id, &echoServant{}))

	err := poa.ActivateObjectWithID(id, &echoServant{})
	require.Error(t, err)
	require.True(t, IsSystemException(err))
	require.Equal(t, "BAD_PARAM", err.(Exception).Name())
}

func TestIDToServantUnknownIsObjectNotActive(t *testing.T) {
	orb := Init()
	poa := orb.GetRootPOA()

	_, err := poa.IDToServant(ObjectID("never-activated"))
	require.ErrorIs(t, err, ErrObjectNotActive)
}

func TestCreateReferenceWithIdProducesIOR(t *testing.T) {
	orb := Init()
	poa := orb.GetRootPOA()
	poa.BindEndpoint("localhost", 9999)

	ref := poa.CreateReferenceWithId([]byte("object-key"), "IDL:Test/Echo:1.0")
	require.NotNil(t, ref)
	require.False(t, ref.IsNil())
}

func TestPOAManagerStateMachineTransitions(t *testing.T) {
	orb := Init()
	mgr := orb.CreatePOAManager()

	require.Equal(t, POAManagerHolding, mgr.GetState())

	mgr.Activate()
	require.Equal(t, POAManagerActive, mgr.GetState())

	mgr.Hold()
	require.Equal(t, POAManagerHolding, mgr.GetState())

	mgr.Discard()
	require.Equal(t, POAManagerDiscarding, mgr.GetState())

	mgr.Deactivate(false, false)
	require.Equal(t, POAManagerInactive, mgr.GetState())
}

func TestPOAManagerDiscardingRejectsDispatch(t *testing.T) {
	orb := Init()
	poa := orb.GetRootPOA()

	mgr, err := orb.GetPOAManager(0)
	require.NoError(t, err)
	mgr.Discard()

	require.Equal(t, POAManagerDiscarding, poa.managerState())

	server := &Server{orb: orb}
	_, _, ex := server.resolvePOAAndServant([]byte("any-key"))
	require.NotNil(t, ex)
	require.Equal(t, "TRANSIENT", ex.Name())
}

func TestWaitWhileHoldingUnblocksOnActivate(t *testing.T) {
	orb := Init()
	poa := orb.GetRootPOA()

	mgr, err := orb.GetPOAManager(0)
	require.NoError(t, err)
	mgr.Hold()
	require.Equal(t, POAManagerHolding, poa.managerState())

	var wg sync.WaitGroup
	wg.Add(1)
	done := make(chan struct{})
	go func() {
		defer wg.Done()
		poa.WaitWhileHolding()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("WaitWhileHolding returned while manager still holding")
	case <-time.After(20 * time.Millisecond):
	}

	mgr.Activate()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitWhileHolding did not unblock after Activate")
	}
	wg.Wait()
}
