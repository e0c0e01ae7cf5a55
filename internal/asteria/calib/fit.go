package calib

import (
	"github.com/starwatch-station/asteria/internal/asteria/camera"
	"github.com/starwatch-station/asteria/internal/asteria/lmfit"
)

// refine runs LM refinement of the camera intrinsics and SEZ->CAM
// quaternion against a set of cross-matches, delegating the iteration
// itself to lmfit.Solve (spec §4.5, §4.9). The quaternion is renormalized
// after every accepted step, matching GeoCalFitter::fit's override of the
// base solver loop for that purpose (math/geocalfitter.cpp).
func refine(cam camera.Model, qSezCam Quaternion, gmstHours, lon, lat float64, matches []CrossMatch) (Quaternion, lmfit.Result, error) {
	nIntrinsic := len(cam.Parameters())

	// origParams is restored on any failure path below: cam.SetParameters
	// is called in place on every LM trial, including rejected steps and
	// finite-difference perturbations, so a failed fit must not leave cam
	// holding the last (rejected) trial's parameters (spec §7's "previous
	// inventory retained unchanged on fit failure").
	origParams := append([]float64(nil), cam.Parameters()...)

	initial := make([]float64, 0, nIntrinsic+4)
	initial = append(initial, cam.Parameters()...)
	initial = append(initial, qSezCam.W, qSezCam.X, qSezCam.Y, qSezCam.Z)

	observed := make([]float64, 0, 2*len(matches))
	for _, m := range matches {
		observed = append(observed, m.Source.CI, m.Source.CJ)
	}

	splitQuaternion := func(params []float64) Quaternion {
		return Quaternion{
			W: params[nIntrinsic], X: params[nIntrinsic+1],
			Y: params[nIntrinsic+2], Z: params[nIntrinsic+3],
		}
	}

	model := func(params []float64) []float64 {
		_ = cam.SetParameters(params[:nIntrinsic])
		q := splitQuaternion(params).Normalize()
		rot := bcrfToCamRot(gmstHours, lon, lat, q)

		out := make([]float64, 2*len(matches))
		for k, m := range matches {
			bcrf := raDecToBCRF(degToRad(m.Star.RaDeg), degToRad(m.Star.DecDeg))
			camVec := rotMulVec(rot, bcrf)
			i, j, ok := cam.Project(camera.Vec3{X: camVec.X, Y: camVec.Y, Z: camVec.Z})
			if !ok {
				// Projection failure (behind camera, or out of the valid
				// distortion domain mid-iteration): report a large
				// residual rather than aborting the fit.
				i, j = m.Source.CI+1e6, m.Source.CJ+1e6
			}
			out[2*k] = i
			out[2*k+1] = j
		}
		return out
	}

	renormalize := func(params []float64) {
		q := splitQuaternion(params).Normalize()
		params[nIntrinsic], params[nIntrinsic+1] = q.W, q.X
		params[nIntrinsic+2], params[nIntrinsic+3] = q.Y, q.Z
	}

	result, err := lmfit.Solve(initial, lmfit.Problem{
		Model:         model,
		Observed:      observed,
		Renormalize:   renormalize,
		MaxIterations: 500,
	})
	if err != nil {
		if restoreErr := cam.SetParameters(origParams); restoreErr != nil {
			opsf("restoring camera model after failed LM fit: %v", restoreErr)
		}
		return qSezCam, result, err
	}

	if err := cam.SetParameters(result.Params[:nIntrinsic]); err != nil {
		if restoreErr := cam.SetParameters(origParams); restoreErr != nil {
			opsf("restoring camera model after failed LM fit: %v", restoreErr)
		}
		return qSezCam, result, err
	}
	fitted := splitQuaternion(result.Params).Normalize()
	tracef("LM refinement converged=%v iterations=%d chi2=%.3f", result.Converged, result.Iterations, result.ChiSquare)
	return fitted, result, nil
}
