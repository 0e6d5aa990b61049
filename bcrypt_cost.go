//go:build !race

package users

func passwordHashCost() int {
	return BcryptCost
}
