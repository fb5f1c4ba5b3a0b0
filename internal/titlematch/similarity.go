package titlematch

// Similarity computes the Jaro-Winkler similarity of two strings, in [0,1].
// Identical strings score 1.0, a single empty string scores 0.0. The Winkler
// boost rewards a shared prefix of up to four characters.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}

	ra := []rune(a)
	rb := []rune(b)
	lenA := len(ra)
	lenB := len(rb)
	if lenA == 0 || lenB == 0 {
		return 0.0
	}

	window := lenA
	if lenB > window {
		window = lenB
	}
	window = window/2 - 1
	if window < 0 {
		window = 0
	}

	matchedA := make([]bool, lenA)
	matchedB := make([]bool, lenB)
	matches := 0

	for i := 0; i < lenA; i++ {
		start := i - window
		if start < 0 {
			start = 0
		}
		end := i + window + 1
		if end > lenB {
			end = lenB
		}
		for j := start; j < end; j++ {
			if matchedB[j] || ra[i] != rb[j] {
				continue
			}
			matchedA[i] = true
			matchedB[j] = true
			matches++
			break
		}
	}

	// Bail out before the transposition scan so we never divide by zero.
	if matches == 0 {
		return 0.0
	}

	transpositions := 0
	k := 0
	for i := 0; i < lenA; i++ {
		if !matchedA[i] {
			continue
		}
		for !matchedB[k] {
			k++
		}
		if ra[i] != rb[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	jaro := (m/float64(lenA) + m/float64(lenB) + (m-float64(transpositions)/2)/m) / 3

	prefixLimit := 4
	if lenA < prefixLimit {
		prefixLimit = lenA
	}
	if lenB < prefixLimit {
		prefixLimit = lenB
	}
	prefix := 0
	for i := 0; i < prefixLimit; i++ {
		if ra[i] != rb[i] {
			break
		}
		prefix++
	}

	return jaro + 0.1*float64(prefix)*(1-jaro)
}
