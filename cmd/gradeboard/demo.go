package main

import "github.com/pavelanni/gradeboard/internal/drive"

// Demo drive ids, entered into the gather form as-is.
const (
	demoAssignmentID = "demo-assignment"
	demoGoldID       = "demo-gold"
	demoCoalID       = "demo-coal"
)

const demoGoldSource = `package main

func Add(a, b int) int { return a + b }
`

const demoCoalSource = `package main

func Add(a, b int) int {
	if a == 0 {
		return b
	}
	return a + b
}
`

const demoTestSource = `package main

import "gradeboard/checks"

func RunTests() {
	checks.Expect("add", "Add(1, 2) == 3", Add(1, 2) == 3)
	checks.Expect("add", "Add(-1, 1) == 0", Add(-1, 1) == 0)
	checks.Expect("add zero", "Add(0, 0) == 0", Add(0, 0) == 0)
}
`

const demoBrokenImplSource = `package main

func Add(a, b int) int { return a - b }
`

// demoDrive seeds an in-memory drive with a small assignment: one correct
// submission, one broken one, and one student without a final submission.
func demoDrive() *drive.Mem {
	m := drive.NewMem()

	m.AddFolder("", demoAssignmentID, "Assignment 1")

	alice := m.AddFolder(demoAssignmentID, "demo-alice", "alice")
	aliceFinal := m.AddFolder(alice.UniqueID(), "demo-alice-final", "final-submission")
	m.AddFile(aliceFinal.UniqueID(), "demo-alice-impl", "impl.go", demoGoldSource)
	m.AddFile(aliceFinal.UniqueID(), "demo-alice-test", "test.go", demoTestSource)

	bob := m.AddFolder(demoAssignmentID, "demo-bob", "bob")
	bobFinal := m.AddFolder(bob.UniqueID(), "demo-bob-final", "final-submission")
	m.AddFile(bobFinal.UniqueID(), "demo-bob-impl", "impl.go", demoBrokenImplSource)
	m.AddFile(bobFinal.UniqueID(), "demo-bob-test", "test.go", demoTestSource)

	// carol has a folder but never made a final submission.
	m.AddFolder(demoAssignmentID, "demo-carol", "carol")

	refs := m.AddFolder("", "demo-refs", "references")
	m.AddFile(refs.UniqueID(), demoGoldID, "gold.go", demoGoldSource)
	m.AddFile(refs.UniqueID(), demoCoalID, "coal-v1.go", demoCoalSource)

	return m
}
