//go:build !race

package kanban

func passwordHashCost() int {
	return 12
}
