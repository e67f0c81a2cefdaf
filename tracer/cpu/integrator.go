package cpu

import (
	"github.com/Algorhythm-sxv/culet/asset/scene"
	"github.com/Algorhythm-sxv/culet/tracer"
	"github.com/Algorhythm-sxv/culet/types"
	"github.com/chewxy/math32"
)

const (
	// Capacity of the per-ray bounce record arrays. Bounds MaxBounces.
	maxBounceRecords = 16

	// Cosine of the half-angle of the camera light cone (10 degrees).
	lightConeCosine = 0.98480775
)

// The kernel evaluates gem light transport for one ray at a time against an
// immutable compiled scene snapshot. Kernels keep no per-ray state so a
// single instance can serve every pixel of a block.
type kernel struct {
	sceneData *scene.Scene
	camera    *scene.Camera
	params    tracer.RenderParams
}

func splat(v float32) types.Vec3 {
	return types.XYZ(v, v, v)
}

// Unpolarized Fresnel reflectance at a dielectric interface, the average of
// the s- and p-polarized terms. Returns exactly 1 under total internal
// reflection.
func fresnel(incoming, normal types.Vec3, etaI, etaT float32) float32 {
	cosI := incoming.Dot(normal)

	sinT := etaI / etaT * math32.Sqrt(math32.Max(1-cosI*cosI, 0))
	if sinT > 1 {
		return 1
	}

	cosT := math32.Sqrt(math32.Max(1-sinT*sinT, 0))
	cosI = math32.Abs(cosI)
	rs := (etaT*cosI - etaI*cosT) / (etaT*cosI + etaI*cosT)
	rp := (etaI*cosI - etaT*cosT) / (etaI*cosI + etaT*cosT)
	return (rs*rs + rp*rp) / 2
}

// Mirror dir around normal.
func reflect(dir, normal types.Vec3) types.Vec3 {
	return dir.Sub(normal.Mul(2 * dir.Dot(normal))).Normalize()
}

// Refract dir through a surface with the given refractive index ratio
// etaI/etaT. The normal must oppose dir. Under total internal reflection
// the clamp degrades the result to a direction along the interface; callers
// weight such directions by zero.
func refract(dir, normal types.Vec3, etaRatio float32) types.Vec3 {
	cosI := -dir.Dot(normal)
	outPerp := dir.Add(normal.Mul(cosI)).Mul(etaRatio)
	outParallel := normal.Mul(-math32.Sqrt(1 - math32.Min(outPerp.Dot(outPerp), 1)))
	return outPerp.Add(outParallel).Normalize()
}

// Evaluate the lighting model for a ray that leaves the gem along dir. The
// scene is lit by a single camera-aligned source, so only rays escaping
// back toward the camera half-space pick up any light.
func (k *kernel) lightColor(dir types.Vec3) types.Vec3 {
	switch k.params.Model {
	case tracer.IsometricLight:
		if -dir.Dot(k.camera.LookDir) >= 0 {
			return splat(k.params.LightIntensity)
		}
		return types.Vec3{}
	default:
		cos := -dir.Dot(k.camera.LookDir)
		if cos < lightConeCosine {
			return types.Vec3{}
		}
		return splat(k.params.LightIntensity * cos)
	}
}

// Trace a primary ray through the gem and return its color.
//
// The first surface splits the ray by the Fresnel term: the reflected part
// samples the light directly while the refracted part enters the gem and
// walks up to MaxBounces internal reflections. Each internal hit records
// the segment length, the internal Fresnel reflectance and the light picked
// up by the refracted ray escaping through that facet. The records are
// composited back to front, attenuating every internal segment by the
// Beer-Lambert term for the material, and the result is blended with the
// surface reflection by the first Fresnel ratio.
func (k *kernel) trace(r Ray) types.Vec3 {
	dist, triIndex := k.intersectScene(r)
	if dist >= missDistance {
		return k.params.Background
	}
	if k.params.MaxBounces == 0 {
		return types.Vec3{}
	}

	hit := k.hitInfo(r, dist, triIndex)
	normal := hit.Normal
	etaI, etaT := float32(1), k.sceneData.Material.RefractiveIndex
	if !hit.FrontFace {
		normal = normal.Neg()
		etaI, etaT = etaT, etaI
	}

	f0 := fresnel(r.Dir, normal, etaI, etaT)
	reflectionColor := k.lightColor(reflect(r.Dir, normal))

	maxBounces := int(k.params.MaxBounces)
	if maxBounces > maxBounceRecords {
		maxBounces = maxBounceRecords
	}

	var (
		distances    [maxBounceRecords]float32
		reflectances [maxBounceRecords]float32
		refractions  [maxBounceRecords]types.Vec3
	)

	ior := k.sceneData.Material.RefractiveIndex
	cur := NewRay(hit.Position, refract(r.Dir, normal, etaI/etaT))
	bounces := 0
	for i := 1; i < maxBounces; i++ {
		dist, triIndex = k.intersectScene(cur)
		if dist >= missDistance {
			// The ray escaped through a previous facet.
			break
		}

		hit = k.hitInfo(cur, dist, triIndex)
		inNormal := hit.Normal
		if !hit.FrontFace {
			inNormal = inNormal.Neg()
		}

		reflectance := fresnel(cur.Dir, inNormal, ior, 1)
		distances[i] = dist
		reflectances[i] = reflectance
		if reflectance < 1 {
			refractions[i] = k.lightColor(refract(cur.Dir, inNormal, ior))
		}
		bounces = i

		cur = NewRay(hit.Position, reflect(cur.Dir, inNormal))
	}

	attenuation := k.sceneData.Material.Attenuation
	var color types.Vec3
	for i := bounces; i >= 1; i-- {
		absorb := types.XYZ(
			math32.Exp(-attenuation[0]*distances[i]),
			math32.Exp(-attenuation[1]*distances[i]),
			math32.Exp(-attenuation[2]*distances[i]),
		)
		color = refractions[i].Mul(1 - reflectances[i]).Add(color.Mul(reflectances[i]).MulVec(absorb))
	}

	return reflectionColor.Mul(f0).Add(color.Mul(1 - f0))
}
