package animgraph_test

import (
	"fmt"
	"log"

	"github.com/aretw0/animgraph"
	"github.com/aretw0/animgraph/pkg/adapters/memory"
	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/aretw0/animgraph/pkg/dsl"
)

const exampleAssets = `
skeletons:
  - guid: biped
    joints:
      - name: root
        parent: -1
clips:
  - guid: idle
    skeleton: biped
    length: 2
  - guid: walk
    skeleton: biped
    length: 1
`

// ExampleNew_builder drives a controller built in Go code.
func ExampleNew_builder() {
	assets, err := memory.LoadLibraryYAML([]byte(exampleAssets))
	if err != nil {
		log.Fatal(err)
	}

	b := dsl.New("biped").Skeleton("biped").Param("speed", 0)
	base := b.Base()
	base.State("Idle").Clip("idle").Default()
	base.State("Walk").Clip("walk")
	base.Transition("Idle", "Walk").When("speed", domain.CompareGT, 0.1).Duration(0.2).Fixed(true)

	eng, err := animgraph.New("", animgraph.WithLoader(dsl.Loader(b)), animgraph.WithAssets(assets))
	if err != nil {
		log.Fatal(err)
	}

	a, release, err := eng.NewAnimator("biped")
	if err != nil {
		log.Fatal(err)
	}
	defer release()

	fmt.Println(a.CurrentState(0))
	_ = a.SetParameter("speed", 1)
	a.Update(0.1)
	fmt.Println(a.CurrentState(0))
	// Output:
	// Idle
	// Walk
}
