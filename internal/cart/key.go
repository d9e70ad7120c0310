package cart

import "strconv"

// ResolveKey returns the identity of a (product, variant) pair. Without a
// variant the key is the bare product id. With one, the variant is length
// prefixed so that labels containing separators cannot collide:
//
//	ResolveKey(7, "")          == "7"
//	ResolveKey(7, "Red")       == "7-3:Red"
//	ResolveKey(7, "a-b")       == "7-3:a-b"
func ResolveKey(productID int64, variant string) string {
	id := strconv.FormatInt(productID, 10)
	if variant == "" {
		return id
	}
	return id + "-" + strconv.Itoa(len(variant)) + ":" + variant
}
