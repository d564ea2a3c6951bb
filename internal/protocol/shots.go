package protocol

// packShots folds the per-shot outcomes into the wire bitmask; bit i is shot i.
func packShots(shots [MaxShots]bool) uint16 {
	var v uint16
	for i, hit := range shots {
		if hit {
			v |= 1 << uint(i)
		}
	}
	return v
}

func unpackShots(v uint16) [MaxShots]bool {
	var shots [MaxShots]bool
	for i := range shots {
		shots[i] = v&(1<<uint(i)) != 0
	}
	return shots
}
